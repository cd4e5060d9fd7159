package ws

import (
	"encoding/json"
	"fmt"

	"linguachat/domain/event"
)

// Wire event identifiers of the connection protocol.
const (
	EventSendMessage    = "sendMessage"
	EventOnlineUsers    = "getOnlineUsers"
	EventReceiveMessage = "receiveMessage"
)

// Envelope frames every message on the wire in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// SendMessagePayload is what a client sends on a live connection.
type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// ReceiveMessagePayload is what the receiving client gets pushed.
type ReceiveMessagePayload struct {
	SenderID     string `json:"senderId"`
	Text         string `json:"text"`
	OriginalText string `json:"originalText"`
}

// EncodeEvent maps a domain event onto its wire envelope.
func EncodeEvent(e event.DomainEvent) (Envelope, error) {
	var payload any
	switch evt := e.(type) {
	case event.PresenceChanged:
		// The payload is the plain identifier sequence, not an object.
		if evt.Online == nil {
			payload = []string{}
		} else {
			payload = evt.Online
		}
	case event.MessageDelivered:
		payload = ReceiveMessagePayload{
			SenderID:     evt.SenderID,
			Text:         evt.Text,
			OriginalText: evt.OriginalText,
		}
	default:
		return Envelope{}, fmt.Errorf("no wire mapping for event %q", e.EventName())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: e.EventName(), Payload: raw}, nil
}
