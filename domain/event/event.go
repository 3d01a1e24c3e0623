// Package event defines the outbound events the bus emits to connections.
// Names match the wire protocol the UI listens on.
package event

import "backchannel/domain"

type Event interface {
	Name() string
}

type JoinedChannel struct {
	ChannelID string         `json:"channelId"`
	IsOwner   bool           `json:"isOwner"`
	Channel   domain.Channel `json:"channel"`
}

func (JoinedChannel) Name() string { return "joined_channel" }

type IdentityAssigned struct {
	AnonUser domain.AnonymousIdentity `json:"anonUser"`
}

func (IdentityAssigned) Name() string { return "identity_assigned" }

// MessageSent is echoed to the sender only: the message was accepted and is
// waiting for moderation.
type MessageSent struct {
	Message domain.MessageWithIdentity `json:"message"`
}

func (MessageSent) Name() string { return "message_sent" }

// MessagePending goes to the moderator subgroup only.
type MessagePending struct {
	Message domain.MessageWithIdentity `json:"message"`
}

func (MessagePending) Name() string { return "message_pending" }

// NewMessage is the only room-wide broadcast: a message became public.
type NewMessage struct {
	Message domain.MessageWithIdentity `json:"message"`
}

func (NewMessage) Name() string { return "new_message" }

// MessageRejected is delivered only to the author's connections.
type MessageRejected struct {
	MessageID string `json:"messageId"`
}

func (MessageRejected) Name() string { return "message_rejected" }

type ChannelClosed struct {
	ChannelID string `json:"channelId"`
}

func (ChannelClosed) Name() string { return "channel_closed" }

type ChannelOpened struct {
	ChannelID string `json:"channelId"`
}

func (ChannelOpened) Name() string { return "channel_opened" }

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Error) Name() string { return "error" }
