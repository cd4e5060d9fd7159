package event

import "time"

// DomainEvent is anything the relay pushes to a live connection.
// EventName matches the wire event identifier of the connection protocol.
type DomainEvent interface {
	EventName() string
}

// PresenceChanged carries the full set of online users at broadcast time.
// The set is recomputed on every registry change, never diffed or cached.
type PresenceChanged struct {
	Online []string
	At     time.Time
}

func (PresenceChanged) EventName() string {
	return "getOnlineUsers"
}

// MessageDelivered is pushed to the receiving connection after a message
// has been translated and persisted. Text carries the translated content.
type MessageDelivered struct {
	SenderID     string
	Text         string
	OriginalText string
	At           time.Time
}

func (MessageDelivered) EventName() string {
	return "receiveMessage"
}
