package domain

import "time"

type MessageStatus string

const (
	MessagePending  MessageStatus = "pending"
	MessageApproved MessageStatus = "approved"
)

// Message is a single piece of anonymous feedback. It is born pending and
// either becomes approved (ApprovedAt set) or is deleted on rejection;
// rejected messages leave no trace.
type Message struct {
	ID         string        `json:"id"`
	ChannelID  string        `json:"channel_id"`
	AnonUserID string        `json:"anon_user_id"`
	Content    string        `json:"content"`
	Status     MessageStatus `json:"status"`
	SentAt     time.Time     `json:"sent_at"`
	ApprovedAt *time.Time    `json:"approved_at"`
}

// EffectiveAt is the sort key for all feed views: approval time once a
// message is public, submission time while it is only visible to its author.
func (m Message) EffectiveAt() time.Time {
	if m.Status == MessageApproved && m.ApprovedAt != nil {
		return *m.ApprovedAt
	}
	return m.SentAt
}

// AuthorCard is the display identity embedded in message payloads.
type AuthorCard struct {
	Name                string `json:"name"`
	IconURL             string `json:"icon_url"`
	IconBackgroundColor string `json:"icon_background_color"`
}

// MessageWithIdentity joins a message with its author's display identity,
// the shape every broadcast and history read carries.
type MessageWithIdentity struct {
	Message
	AnonUser AuthorCard `json:"anon_user"`
}
