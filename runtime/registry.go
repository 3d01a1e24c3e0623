// Package runtime hosts the live side of the system: the room registry and
// the moderation bus. It orchestrates joins, fan-out and lifecycle
// transitions without containing storage or transport logic.
package runtime

import (
	"sync"

	"backchannel/contract"
	"backchannel/domain"
)

type Set map[string]struct{}

type session struct {
	binding domain.Binding
	sink    contract.EventSink
}

// Registry tracks which connection is bound to which channel and role.
// Bind and Unbind are the only mutations; the bus reads membership to
// compute fan-out targets, which keeps the broadcast path free of write
// locks.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]session // connection id -> binding + sink
	roomMembers map[string]Set     // channel id -> connection ids
	moderators  map[string]Set     // channel id -> owner connection ids
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]session),
		roomMembers: make(map[string]Set),
		moderators:  make(map[string]Set),
	}
}

// Bind attaches a connection to a channel with the given binding. A
// connection belongs to at most one channel: rejoining replaces the
// previous binding entirely, including any moderator membership.
func (r *Registry) Bind(connID string, binding domain.Binding, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connID)

	r.sessions[connID] = session{binding: binding, sink: sink}
	addMember(r.roomMembers, binding.ChannelID, connID)
	if binding.IsOwner() {
		addMember(r.moderators, binding.ChannelID, connID)
	}
}

// Unbind removes a connection from the registry and its channel grouping.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(connID)
}

func (r *Registry) removeLocked(connID string) {
	previous, ok := r.sessions[connID]
	if !ok {
		return
	}
	delete(r.sessions, connID)
	dropMember(r.roomMembers, previous.binding.ChannelID, connID)
	dropMember(r.moderators, previous.binding.ChannelID, connID)
}

// Binding returns the immutable binding of a connection, if it has one.
func (r *Registry) Binding(connID string) (domain.Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	return s.binding, ok
}

// SinksForChannel retrieves every live sink of a channel's room.
func (r *Registry) SinksForChannel(channelID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(r.roomMembers[channelID], nil)
}

// ModeratorSinks retrieves the sinks of the channel's moderator subgroup.
func (r *Registry) ModeratorSinks(channelID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(r.moderators[channelID], nil)
}

// AuthorSinks retrieves the sinks of every connection in the channel bound
// to the given anonymous identity. A rejection notice goes only here.
func (r *Registry) AuthorSinks(channelID, anonUserID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(r.roomMembers[channelID], func(s session) bool {
		return s.binding.AnonUserID == anonUserID
	})
}

func (r *Registry) collectLocked(members Set, keep func(session) bool) []contract.EventSink {
	var sinks []contract.EventSink
	for connID := range members {
		s, ok := r.sessions[connID]
		if !ok {
			continue
		}
		if keep != nil && !keep(s) {
			continue
		}
		sinks = append(sinks, s.sink)
	}
	return sinks
}

func addMember(groups map[string]Set, channelID, connID string) {
	if _, ok := groups[channelID]; !ok {
		groups[channelID] = make(Set)
	}
	groups[channelID][connID] = struct{}{}
}

func dropMember(groups map[string]Set, channelID, connID string) {
	members, ok := groups[channelID]
	if !ok {
		return
	}
	delete(members, connID)
	// No empty sets left behind, rooms come and go with their audience.
	if len(members) == 0 {
		delete(groups, channelID)
	}
}
