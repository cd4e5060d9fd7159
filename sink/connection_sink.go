package sink

import (
	"context"

	"linguachat/domain/event"
)

// ConnectionSink decouples the relay and presence fanout from the socket
// write side: events land in a buffered channel that the connection's write
// loop drains.
type ConnectionSink struct {
	Events chan event.DomainEvent
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the relay or the presence broadcaster.
// A full buffer drops the event rather than blocking the caller: delivery
// is best-effort and the registry path must never suspend on a slow socket.
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
