package runtime

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"backchannel/domain"
	"backchannel/domain/event"
	"backchannel/errors"
	"backchannel/identity"
	"backchannel/repositories"
	"backchannel/services"
)

type busFixture struct {
	bus      *Bus
	registry *Registry
	channels *services.ChannelService
	repo     repositories.MessageRepository
	channel  domain.Channel
}

func newBusFixture(t *testing.T) *busFixture {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	channelRepo := repositories.NewChannelRepository(db, log)
	messageRepo := repositories.NewMessageRepository(db, log)
	identityRepo := repositories.NewIdentityRepository(db, log)

	identities, err := identity.NewService(identityRepo)
	req.NoError(err)

	channels := services.NewChannelService(channelRepo, log)
	messages := services.NewMessageService(messageRepo, log)
	registry := NewRegistry()
	bus := NewBus(log, registry, channels, messages, identities, identityRepo, time.Second, time.Second)

	channel, err := channels.Create(context.Background(), "owner-1", "Town hall")
	req.NoError(err)

	return &busFixture{
		bus:      bus,
		registry: registry,
		channels: channels,
		repo:     messageRepo,
		channel:  channel,
	}
}

func (f *busFixture) joinOwner(t *testing.T, connID string) *captureSink {
	t.Helper()
	sink := &captureSink{}
	f.bus.Join(context.Background(), connID, sink, JoinRequest{
		ChannelID: f.channel.ID,
		IsOwner:   true,
		UserID:    "owner-1",
	})
	require.Contains(t, sink.names(), "joined_channel")
	return sink
}

func (f *busFixture) joinAnon(t *testing.T, connID, sessionID string) (*captureSink, domain.AnonymousIdentity) {
	t.Helper()
	sink := &captureSink{}
	f.bus.Join(context.Background(), connID, sink, JoinRequest{
		ChannelID: f.channel.ID,
		SessionID: sessionID,
	})
	for _, e := range sink.events {
		if assigned, ok := e.(event.IdentityAssigned); ok {
			return sink, assigned.AnonUser
		}
	}
	t.Fatal("no identity assigned on join")
	return nil, domain.AnonymousIdentity{}
}

func (f *busFixture) send(t *testing.T, connID string, sink *captureSink, content string) domain.MessageWithIdentity {
	t.Helper()
	f.bus.Send(context.Background(), connID, sink, SendRequest{
		ChannelID: f.channel.ID,
		Content:   content,
	})
	for _, e := range sink.events {
		if sent, ok := e.(event.MessageSent); ok {
			return sent.Message
		}
	}
	t.Fatal("no message_sent echo after send")
	return domain.MessageWithIdentity{}
}

func requireErrorEvent(t *testing.T, sink *captureSink, code string) event.Error {
	t.Helper()
	last, ok := sink.last().(event.Error)
	require.True(t, ok, "expected an error event, got %v", sink.names())
	require.Equal(t, code, last.Code)
	return last
}

func Test_Join_Assigns_Stable_Identity_Per_Session(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)

	// Given a session that joins, leaves and joins again
	_, first := fixture.joinAnon(t, "conn-1", "session-1")
	fixture.bus.Leave("conn-1")
	_, second := fixture.joinAnon(t, "conn-2", "session-1")

	// Then the identity survives the reconnect
	req.Equal(first.ID, second.ID)
	req.Equal(first.Name, second.Name)

	// And a different session gets its own row
	_, other := fixture.joinAnon(t, "conn-3", "session-2")
	req.NotEqual(first.ID, other.ID)
}

func Test_Owner_Join_Requires_Matching_User(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	sink := &captureSink{}

	fixture.bus.Join(context.Background(), "conn-1", sink, JoinRequest{
		ChannelID: fixture.channel.ID,
		IsOwner:   true,
		UserID:    "intruder",
	})

	e := requireErrorEvent(t, sink, errors.CodeUnauthorized)
	req.Equal("You are not the owner of this channel", e.Message)
	_, bound := fixture.registry.Binding("conn-1")
	req.False(bound)
}

func Test_Join_Unknown_Channel(t *testing.T) {
	fixture := newBusFixture(t)
	sink := &captureSink{}

	fixture.bus.Join(context.Background(), "conn-1", sink, JoinRequest{
		ChannelID: uuid.NewString(),
		SessionID: "session-1",
	})

	requireErrorEvent(t, sink, errors.CodeChannelNotFound)
}

func Test_Failed_Join_Leaves_Connection_Unbound(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	ctx := context.Background()

	// Given a connection already bound to a channel
	sink, _ := fixture.joinAnon(t, "conn-1", "session-1")
	_, bound := fixture.registry.Binding("conn-1")
	req.True(bound)

	// When a later join targets a missing channel
	fixture.bus.Join(ctx, "conn-1", sink, JoinRequest{
		ChannelID: uuid.NewString(),
		SessionID: "session-1",
	})

	// Then the previous binding is gone too
	requireErrorEvent(t, sink, errors.CodeChannelNotFound)
	_, bound = fixture.registry.Binding("conn-1")
	req.False(bound)
}

func Test_Anonymous_Join_Requires_A_Session(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	sink := &captureSink{}

	fixture.bus.Join(context.Background(), "conn-1", sink, JoinRequest{
		ChannelID: fixture.channel.ID,
	})

	e := requireErrorEvent(t, sink, errors.CodeSessionRequired)
	req.Equal("Session id required", e.Message)
	_, bound := fixture.registry.Binding("conn-1")
	req.False(bound)
}

func Test_Send_Reaches_Sender_And_Moderators_Only(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)

	ownerSink := fixture.joinOwner(t, "conn-owner")
	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")
	bystanderSink, _ := fixture.joinAnon(t, "conn-bystander", "session-2")

	sent := fixture.send(t, "conn-sender", senderSink, "what about remote work?")

	// The sender gets the acceptance echo
	req.Equal("what about remote work?", sent.Content)
	req.Equal(domain.MessagePending, sent.Status)
	req.NotEmpty(sent.AnonUser.Name)

	// The owner sees the pending notice
	pending, ok := ownerSink.last().(event.MessagePending)
	req.True(ok)
	req.Equal(sent.ID, pending.Message.ID)

	// The bystander learns nothing
	req.NotContains(bystanderSink.names(), "message_pending")
	req.NotContains(bystanderSink.names(), "message_sent")
	req.NotContains(bystanderSink.names(), "new_message")
}

func Test_Owner_Cannot_Send(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	ctx := context.Background()

	ownerSink := fixture.joinOwner(t, "conn-owner")
	fixture.bus.Send(ctx, "conn-owner", ownerSink, SendRequest{
		ChannelID: fixture.channel.ID,
		Content:   "as the owner I say",
	})

	e := requireErrorEvent(t, ownerSink, errors.CodeForbidden)
	req.Equal("Channel owners cannot send messages", e.Message)
	rows, err := fixture.repo.AllByChannel(ctx, fixture.channel.ID)
	req.NoError(err)
	req.Empty(rows)
}

func Test_Unjoined_Connection_Cannot_Send(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	sink := &captureSink{}

	fixture.bus.Send(context.Background(), "conn-ghost", sink, SendRequest{
		ChannelID: fixture.channel.ID,
		Content:   "hello",
	})

	e := requireErrorEvent(t, sink, errors.CodeForbidden)
	req.Equal("Anonymous user identity required", e.Message)
}

func Test_Send_To_Closed_Channel_Fails(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	ctx := context.Background()

	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")
	_, err := fixture.channels.SetStatus(ctx, fixture.channel.ID, domain.ChannelClosed, "owner-1")
	req.NoError(err)

	fixture.bus.Send(ctx, "conn-sender", senderSink, SendRequest{
		ChannelID: fixture.channel.ID,
		Content:   "too late",
	})

	e := requireErrorEvent(t, senderSink, errors.CodeChannelClosed)
	req.Equal("This channel is closed and not accepting new messages", e.Message)
	rows, err := fixture.repo.AllByChannel(ctx, fixture.channel.ID)
	req.NoError(err)
	req.Empty(rows)
}

func Test_Approve_Broadcasts_To_Whole_Room(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)

	ownerSink := fixture.joinOwner(t, "conn-owner")
	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")
	bystanderSink, _ := fixture.joinAnon(t, "conn-bystander", "session-2")

	sent := fixture.send(t, "conn-sender", senderSink, "what about remote work?")
	fixture.bus.Approve(context.Background(), "conn-owner", ownerSink, ModerationRequest{MessageID: sent.ID})

	for _, sink := range []*captureSink{ownerSink, senderSink, bystanderSink} {
		published, ok := sink.last().(event.NewMessage)
		req.True(ok, "expected new_message, got %v", sink.names())
		req.Equal(sent.ID, published.Message.ID)
		req.Equal(domain.MessageApproved, published.Message.Status)
		req.NotNil(published.Message.ApprovedAt)
		req.NotEmpty(published.Message.AnonUser.Name)
	}
}

func Test_Anonymous_Cannot_Moderate(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	ctx := context.Background()

	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")
	sent := fixture.send(t, "conn-sender", senderSink, "approve me, myself")

	fixture.bus.Approve(ctx, "conn-sender", senderSink, ModerationRequest{MessageID: sent.ID})

	e := requireErrorEvent(t, senderSink, errors.CodeForbidden)
	req.Equal("Anonymous users cannot approve or reject messages", e.Message)

	// The message stays pending
	row, found, err := fixture.repo.FindByID(ctx, sent.ID)
	req.NoError(err)
	req.True(found)
	req.Equal(domain.MessagePending, row.Status)
}

func Test_Moderation_Limited_To_Own_Channel(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	ctx := context.Background()

	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")
	sent := fixture.send(t, "conn-sender", senderSink, "cross-channel target")

	// Given the owner of another channel
	other, err := fixture.channels.Create(ctx, "owner-2", "Another room")
	req.NoError(err)
	otherSink := &captureSink{}
	fixture.bus.Join(ctx, "conn-other-owner", otherSink, JoinRequest{
		ChannelID: other.ID,
		IsOwner:   true,
		UserID:    "owner-2",
	})

	// When they try to approve a message outside their channel
	fixture.bus.Approve(ctx, "conn-other-owner", otherSink, ModerationRequest{MessageID: sent.ID})

	e := requireErrorEvent(t, otherSink, errors.CodeForbidden)
	req.Equal("You do not own this channel", e.Message)
}

func Test_Reject_Notifies_Author_Only(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	ctx := context.Background()

	ownerSink := fixture.joinOwner(t, "conn-owner")
	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")
	bystanderSink, _ := fixture.joinAnon(t, "conn-bystander", "session-2")

	sent := fixture.send(t, "conn-sender", senderSink, "off topic")
	fixture.bus.Reject(ctx, "conn-owner", ownerSink, ModerationRequest{MessageID: sent.ID})

	// Only the author hears about it
	rejected, ok := senderSink.last().(event.MessageRejected)
	req.True(ok, "expected message_rejected, got %v", senderSink.names())
	req.Equal(sent.ID, rejected.MessageID)
	req.NotContains(bystanderSink.names(), "message_rejected")

	// And the message is gone for good
	_, found, err := fixture.repo.FindByID(ctx, sent.ID)
	req.NoError(err)
	req.False(found)
}

func Test_Double_Approve_Fails_Second_Time(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	ctx := context.Background()

	ownerSink := fixture.joinOwner(t, "conn-owner")
	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")
	sent := fixture.send(t, "conn-sender", senderSink, "great question")

	fixture.bus.Approve(ctx, "conn-owner", ownerSink, ModerationRequest{MessageID: sent.ID})
	fixture.bus.Approve(ctx, "conn-owner", ownerSink, ModerationRequest{MessageID: sent.ID})

	requireErrorEvent(t, ownerSink, errors.CodeNotPending)

	// The room saw exactly one publication
	broadcasts := 0
	for _, name := range senderSink.names() {
		if name == "new_message" {
			broadcasts++
		}
	}
	req.Equal(1, broadcasts)
}

func Test_Rejecting_Approved_Message_Fails(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)
	ctx := context.Background()

	ownerSink := fixture.joinOwner(t, "conn-owner")
	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")
	sent := fixture.send(t, "conn-sender", senderSink, "already public")

	fixture.bus.Approve(ctx, "conn-owner", ownerSink, ModerationRequest{MessageID: sent.ID})
	fixture.bus.Reject(ctx, "conn-owner", ownerSink, ModerationRequest{MessageID: sent.ID})

	requireErrorEvent(t, ownerSink, errors.CodeNotPending)

	// Publication is irrevocable through this path
	row, found, err := fixture.repo.FindByID(ctx, sent.ID)
	req.NoError(err)
	req.True(found)
	req.Equal(domain.MessageApproved, row.Status)
}

func Test_Status_Announcements_Reach_The_Room(t *testing.T) {
	req := require.New(t)
	fixture := newBusFixture(t)

	fixture.joinOwner(t, "conn-owner")
	senderSink, _ := fixture.joinAnon(t, "conn-sender", "session-1")

	closed := fixture.channel
	closed.Status = domain.ChannelClosed
	fixture.bus.AnnounceStatus(closed)
	announcement, ok := senderSink.last().(event.ChannelClosed)
	req.True(ok)
	req.Equal(fixture.channel.ID, announcement.ChannelID)

	reopened := fixture.channel
	reopened.Status = domain.ChannelOpen
	fixture.bus.AnnounceStatus(reopened)
	req.Equal("channel_opened", senderSink.last().Name())
}
