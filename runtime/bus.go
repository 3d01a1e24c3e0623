package runtime

import (
	"context"
	"log/slog"
	"time"

	"backchannel/auth"
	"backchannel/contract"
	"backchannel/domain"
	"backchannel/domain/event"
	"backchannel/errors"
	"backchannel/observability"
	"backchannel/services"
)

// IdentityDirectory assigns the stable anonymous identity at join time.
type IdentityDirectory interface {
	GetOrCreate(ctx context.Context, channelID, sessionID string) (domain.AnonymousIdentity, error)
}

// IdentityResolver resolves an identity for broadcast payloads.
type IdentityResolver interface {
	FindByID(ctx context.Context, id string) (domain.AnonymousIdentity, bool, error)
}

// Inbound payloads. The transport validates shapes; the bus re-derives
// every role decision from the connection binding, never from these fields.
type JoinRequest struct {
	ChannelID string `json:"channelId" validate:"required"`
	SessionID string `json:"sessionId"`
	IsOwner   bool   `json:"isOwner"`
	UserID    string `json:"userId"`
}

type SendRequest struct {
	ChannelID string `json:"channelId" validate:"required"`
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
}

type ModerationRequest struct {
	MessageID string `json:"messageId" validate:"required"`
	UserID    string `json:"userId"`
}

// Bus is the moderation state machine. Each handler runs on the calling
// connection's goroutine; shared state lives behind the registry and the
// store, so handlers are safe to run concurrently across connections.
// Every failure is reported to the originating connection as an error
// event and never tears the connection down.
type Bus struct {
	log        *slog.Logger
	registry   contract.IRegistry
	channels   *services.ChannelService
	messages   *services.MessageService
	identities IdentityDirectory
	resolver   IdentityResolver

	storeTimeout time.Duration
	sinkTimeout  time.Duration
}

func NewBus(log *slog.Logger, registry contract.IRegistry,
	channels *services.ChannelService, messages *services.MessageService,
	identities IdentityDirectory, resolver IdentityResolver,
	storeTimeout, sinkTimeout time.Duration) *Bus {
	return &Bus{
		log:          log,
		registry:     registry,
		channels:     channels,
		messages:     messages,
		identities:   identities,
		resolver:     resolver,
		storeTimeout: storeTimeout,
		sinkTimeout:  sinkTimeout,
	}
}

// Join binds the connection to a channel and role. On any failure the
// connection is left unbound; a successful rejoin replaces the previous
// binding.
func (b *Bus) Join(ctx context.Context, connID string, sink contract.EventSink, req JoinRequest) {
	ctx, cancel := b.storeCtx(ctx)
	defer cancel()

	channel, err := b.channels.Get(ctx, req.ChannelID)
	if err != nil {
		b.registry.Unbind(connID)
		b.fail(sink, err)
		return
	}

	if req.IsOwner {
		if req.UserID == "" || channel.OwnerID != req.UserID {
			b.registry.Unbind(connID)
			b.fail(sink, errors.Authorization(errors.CodeUnauthorized, "You are not the owner of this channel"))
			return
		}
		b.registry.Bind(connID, domain.OwnerBinding(req.UserID, channel.ID), sink)
		b.emit(sink, event.JoinedChannel{ChannelID: channel.ID, IsOwner: true, Channel: channel})
		b.log.Debug("owner joined channel", "conn_id", connID, "channel_id", channel.ID)
		return
	}

	if req.SessionID == "" {
		b.registry.Unbind(connID)
		b.fail(sink, errors.Validation(errors.CodeSessionRequired, "Session id required"))
		return
	}
	identity, err := b.identities.GetOrCreate(ctx, channel.ID, req.SessionID)
	if err != nil {
		b.registry.Unbind(connID)
		b.fail(sink, err)
		return
	}
	b.registry.Bind(connID, domain.AnonymousBinding(identity.ID, req.SessionID, channel.ID), sink)
	b.emit(sink, event.IdentityAssigned{AnonUser: identity})
	b.emit(sink, event.JoinedChannel{ChannelID: channel.ID, IsOwner: false, Channel: channel})
	b.log.Debug("anonymous participant joined channel",
		"conn_id", connID, "channel_id", channel.ID, "anon_user_id", identity.ID)
}

// Send accepts a feedback submission from an anonymous connection. The
// sender gets an acceptance echo, the moderator subgroup a pending notice;
// nobody else learns the message exists.
func (b *Bus) Send(ctx context.Context, connID string, sink contract.EventSink, req SendRequest) {
	binding, _ := b.registry.Binding(connID)
	if err := auth.AssertAnonymousSender(binding.AnonUserID, binding.UserID); err != nil {
		b.fail(sink, err)
		return
	}

	ctx, cancel := b.storeCtx(ctx)
	defer cancel()

	channel, err := b.channels.Get(ctx, binding.ChannelID)
	if err != nil {
		b.fail(sink, err)
		return
	}
	if !channel.IsOpen() {
		b.fail(sink, errors.InvalidState(errors.CodeChannelClosed, "This channel is closed and not accepting new messages"))
		return
	}

	message, err := b.messages.Submit(ctx, channel.ID, binding.AnonUserID, req.Content)
	if err != nil {
		b.fail(sink, err)
		return
	}
	observability.MessagesSubmitted.Inc()

	payload, err := b.withIdentity(ctx, message)
	if err != nil {
		b.fail(sink, err)
		return
	}
	b.emit(sink, event.MessageSent{Message: payload})
	b.fanout(b.registry.ModeratorSinks(channel.ID), event.MessagePending{Message: payload})
	b.log.Debug("message submitted", "message_id", message.ID, "channel_id", channel.ID)
}

// Approve publishes a pending message. This is the only room-wide
// broadcast: every connection of the channel receives the approved message.
func (b *Bus) Approve(ctx context.Context, connID string, sink contract.EventSink, req ModerationRequest) {
	ctx, cancel := b.storeCtx(ctx)
	defer cancel()

	channel, err := b.authorizeModeration(ctx, connID, req.MessageID)
	if err != nil {
		b.fail(sink, err)
		return
	}

	approved, err := b.messages.Approve(ctx, req.MessageID)
	if err != nil {
		b.fail(sink, err)
		return
	}
	observability.MessagesApproved.Inc()

	payload, err := b.withIdentity(ctx, approved)
	if err != nil {
		b.fail(sink, err)
		return
	}
	b.fanout(b.registry.SinksForChannel(channel.ID), event.NewMessage{Message: payload})
	b.log.Info("message approved", "message_id", approved.ID, "channel_id", channel.ID)
}

// Reject deletes a pending message and tells only the author's connections.
func (b *Bus) Reject(ctx context.Context, connID string, sink contract.EventSink, req ModerationRequest) {
	ctx, cancel := b.storeCtx(ctx)
	defer cancel()

	channel, err := b.authorizeModeration(ctx, connID, req.MessageID)
	if err != nil {
		b.fail(sink, err)
		return
	}

	rejected, err := b.messages.Reject(ctx, req.MessageID)
	if err != nil {
		b.fail(sink, err)
		return
	}
	observability.MessagesRejected.Inc()

	b.fanout(b.registry.AuthorSinks(channel.ID, rejected.AnonUserID), event.MessageRejected{MessageID: rejected.ID})
	b.log.Info("message rejected", "message_id", rejected.ID, "channel_id", channel.ID)
}

// Leave drops the connection's binding. Broadcasts already in flight to
// its sink are simply dropped by the transport.
func (b *Bus) Leave(connID string) {
	b.registry.Unbind(connID)
}

// AnnounceStatus broadcasts a channel open/close transition to the room.
func (b *Bus) AnnounceStatus(channel domain.Channel) {
	var e event.Event
	switch channel.Status {
	case domain.ChannelClosed:
		e = event.ChannelClosed{ChannelID: channel.ID}
	default:
		e = event.ChannelOpened{ChannelID: channel.ID}
	}
	b.fanout(b.registry.SinksForChannel(channel.ID), e)
}

// authorizeModeration runs the moderator-side checks shared by approve and
// reject: the binding must be an owner binding, the message must exist, and
// the bound user must own the message's channel. The payload userId plays
// no part in any of it.
func (b *Bus) authorizeModeration(ctx context.Context, connID, messageID string) (domain.Channel, error) {
	binding, _ := b.registry.Binding(connID)
	if err := auth.AssertChannelOwner(binding.UserID, binding.AnonUserID); err != nil {
		return domain.Channel{}, err
	}
	message, err := b.messages.Get(ctx, messageID)
	if err != nil {
		return domain.Channel{}, err
	}
	channel, err := b.channels.Get(ctx, message.ChannelID)
	if err != nil {
		return domain.Channel{}, err
	}
	if err = auth.AssertOwnsChannel(channel, binding.UserID); err != nil {
		return domain.Channel{}, err
	}
	return channel, nil
}

func (b *Bus) withIdentity(ctx context.Context, message domain.Message) (domain.MessageWithIdentity, error) {
	identity, found, err := b.resolver.FindByID(ctx, message.AnonUserID)
	if err != nil {
		return domain.MessageWithIdentity{}, errors.Infrastructure(err)
	}
	if !found {
		b.log.Warn("message author has no identity", "anon_user_id", message.AnonUserID)
	}
	return domain.MessageWithIdentity{Message: message, AnonUser: identity.Card()}, nil
}

func (b *Bus) fanout(sinks []contract.EventSink, e event.Event) {
	for _, sink := range sinks {
		b.emit(sink, e)
	}
}

func (b *Bus) emit(sink contract.EventSink, e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), b.sinkTimeout)
	defer cancel()
	if err := sink.Consume(ctx, e); err != nil {
		observability.DroppedDeliveries.Inc()
		b.log.Debug("event delivery dropped", "event", e.Name(), "error", err)
	}
}

// fail reports a failure to the originating connection as a structured
// error event. Infrastructure causes are logged with detail; the client
// only ever sees the generic code.
func (b *Bus) fail(sink contract.EventSink, err error) {
	code, message := errors.Wire(err)
	if errors.ClassOf(err) == errors.ClassInfrastructure {
		b.log.Error("bus operation failed", "code", code, "error", err)
	} else {
		b.log.Debug("bus operation refused", "code", code, "reason", message)
	}
	observability.BusErrors.WithLabelValues(code).Inc()
	b.emit(sink, event.Error{Code: code, Message: message})
}

func (b *Bus) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.storeTimeout)
}
