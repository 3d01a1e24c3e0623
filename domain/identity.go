package domain

import "time"

// AnonymousIdentity is a session-stable pseudonym for one participant within
// one channel. At most one identity exists per (channel, session) pair and
// it never changes once created.
type AnonymousIdentity struct {
	ID                  string    `json:"id"`
	ChannelID           string    `json:"channel_id"`
	SessionID           string    `json:"session_id"`
	Name                string    `json:"name"`
	IconURL             string    `json:"icon_url"`
	IconBackgroundColor string    `json:"icon_background_color"`
	CreatedAt           time.Time `json:"created_at"`
}

func (a AnonymousIdentity) Card() AuthorCard {
	return AuthorCard{
		Name:                a.Name,
		IconURL:             a.IconURL,
		IconBackgroundColor: a.IconBackgroundColor,
	}
}
