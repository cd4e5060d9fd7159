package sink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linguachat/domain/event"
)

func TestConnectionSink_BuffersEvents(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(2)

	evt := event.PresenceChanged{Online: []string{"alice"}, At: time.Now().UTC()}
	req.NoError(s.Consume(context.Background(), evt))

	select {
	case got := <-s.Events:
		req.Equal(evt, got)
	default:
		req.Fail("Event should have been buffered")
	}
}

func TestConnectionSink_DropsWhenFull(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(1)

	first := event.MessageDelivered{SenderID: "alice", Text: "one"}
	second := event.MessageDelivered{SenderID: "alice", Text: "two"}

	req.NoError(s.Consume(context.Background(), first))
	// Buffer full: the second event is dropped, not blocked on
	req.NoError(s.Consume(context.Background(), second))

	got := <-s.Events
	req.Equal(first, got)

	select {
	case <-s.Events:
		req.Fail("Second event should have been dropped")
	default:
	}
}

func TestConnectionSink_RespectsContext(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Consume(ctx, event.MessageDelivered{SenderID: "alice"})
	req.ErrorIs(err, context.Canceled)
}
