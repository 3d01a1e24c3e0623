package ws

import (
	"context"
	"errors"

	"backchannel/domain/event"
)

var ErrBufferFull = errors.New("connection buffer full")

// Sink buffers events for one websocket connection. The bus writes, the
// connection's writer goroutine drains. A full buffer drops the event
// rather than stalling the broadcast path.
type Sink struct {
	events chan event.Event
}

func NewSink(bufferSize int) *Sink {
	return &Sink{events: make(chan event.Event, bufferSize)}
}

func (s *Sink) Consume(ctx context.Context, e event.Event) error {
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

func (s *Sink) Events() <-chan event.Event { return s.events }
