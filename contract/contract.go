//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"

	"backchannel/domain"
	"backchannel/domain/event"
)

// EventSink is the write side of one live connection. Consume must not
// block forever: implementations either buffer or drop under pressure.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry tracks which connection is bound to which channel and role.
// Only join/leave mutate it; the bus reads it to compute fan-out targets.
type IRegistry interface {
	Bind(connID string, binding domain.Binding, sink EventSink)
	Unbind(connID string)
	Binding(connID string) (domain.Binding, bool)
	SinksForChannel(channelID string) []EventSink
	ModeratorSinks(channelID string) []EventSink
	AuthorSinks(channelID, anonUserID string) []EventSink
}
