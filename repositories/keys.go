// Package repositories persists channels, identities and messages in
// BadgerDB.
//
// Keys embed 19-digit zero-padded UnixNano segments so that a plain
// lexicographic prefix scan yields chronological order, and reverse
// iteration yields "newest first". Values are JSON-encoded domain structs.
package repositories

import (
	"fmt"
	"time"
)

// tsWidth pads nanosecond timestamps so lexicographic order matches
// chronological order for any date this system will ever see.
const tsWidth = "%019d"

func channelKey(id string) []byte    { return []byte("channel:" + id) }
func codeKey(code string) []byte     { return []byte("code:" + code) }
func messageKey(id string) []byte    { return []byte("msg:" + id) }
func identityIDKey(id string) []byte { return []byte("anonid:" + id) }

func identityKey(channelID, sessionID string) []byte {
	return []byte("anon:" + channelID + ":" + sessionID)
}

func ownerPrefix(ownerID string) []byte {
	return []byte("chanowner:" + ownerID + ":")
}

func ownerKey(ownerID string, createdAt time.Time, channelID string) []byte {
	return fmt.Appendf(ownerPrefix(ownerID), tsWidth+":%s", createdAt.UnixNano(), channelID)
}

// inbox holds every live message of a channel ordered by submission time.
func inboxPrefix(channelID string) []byte {
	return []byte("inbox:" + channelID + ":")
}

func inboxKey(channelID string, sentAt time.Time, messageID string) []byte {
	return fmt.Appendf(inboxPrefix(channelID), tsWidth+":%s", sentAt.UnixNano(), messageID)
}

// feed holds only approved messages of a channel ordered by approval time.
func feedPrefix(channelID string) []byte {
	return []byte("feed:" + channelID + ":")
}

func feedKey(channelID string, approvedAt time.Time, messageID string) []byte {
	return fmt.Appendf(feedPrefix(channelID), tsWidth+":%s", approvedAt.UnixNano(), messageID)
}

// Cursor renders a timestamp the way it appears inside feed keys, so a
// cursor can be appended to the feed prefix and used directly as a seek key.
func Cursor(t time.Time) string {
	return fmt.Sprintf(tsWidth, t.UnixNano())
}
