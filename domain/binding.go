package domain

// Binding ties a live connection to a channel and exactly one role. It is
// built once at a successful join and replaced, never mutated, on rejoin.
// The authorization gate consults only this value; role claims arriving in
// later event payloads are ignored.
type Binding struct {
	ChannelID  string
	UserID     string // set only for the owner role
	AnonUserID string // set only for the anonymous role
	SessionID  string
}

func OwnerBinding(userID, channelID string) Binding {
	return Binding{ChannelID: channelID, UserID: userID}
}

func AnonymousBinding(anonUserID, sessionID, channelID string) Binding {
	return Binding{ChannelID: channelID, AnonUserID: anonUserID, SessionID: sessionID}
}

func (b Binding) IsOwner() bool { return b.UserID != "" }

func (b Binding) IsZero() bool { return b == Binding{} }
