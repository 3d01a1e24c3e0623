// Package domain contains core concepts of the feedback system.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type ChannelStatus string

const (
	ChannelOpen   ChannelStatus = "open"
	ChannelClosed ChannelStatus = "closed"
)

// Channel is a moderation-gated feedback stream owned by one authenticated
// user. The code is the human-shareable entry point and is globally unique.
type Channel struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	Name      string        `json:"name"`
	Code      string        `json:"code"`
	Status    ChannelStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

func (c Channel) IsOpen() bool { return c.Status == ChannelOpen }
