// Package auth holds the authorization gate and owner token handling.
//
// The gate is the complete one-way-communication enforcement: an owner
// binding can never satisfy the sender predicate and an anonymous binding
// can never satisfy the moderator predicate. All predicates are stateless
// and operate on the connection binding set at join time.
package auth

import (
	"backchannel/domain"
	"backchannel/errors"
)

// AssertOwnsChannel fails unless userID is the channel's owner.
func AssertOwnsChannel(channel domain.Channel, userID string) error {
	if channel.OwnerID != userID {
		return errors.Authorization(errors.CodeForbidden, "You do not own this channel")
	}
	return nil
}

// AssertAnonymousSender fails unless the binding is anonymous. Only
// anonymous connections may submit messages.
func AssertAnonymousSender(anonUserID, userID string) error {
	if userID != "" {
		return errors.Authorization(errors.CodeForbidden, "Channel owners cannot send messages")
	}
	if anonUserID == "" {
		return errors.Authorization(errors.CodeForbidden, "Anonymous user identity required")
	}
	return nil
}

// AssertChannelOwner fails unless the binding belongs to an authenticated
// owner. Only owner connections may approve or reject.
func AssertChannelOwner(userID, anonUserID string) error {
	if anonUserID != "" && userID == "" {
		return errors.Authorization(errors.CodeForbidden, "Anonymous users cannot approve or reject messages")
	}
	if userID == "" {
		return errors.Authorization(errors.CodeForbidden, "Channel owner authentication required")
	}
	return nil
}
