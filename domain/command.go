package domain

// SendMessageCommand is an inbound message sending intent, either read from
// a live connection or posted through the HTTP fallback path.
// Image, when set, is a base64 payload (optionally a data URL).
type SendMessageCommand struct {
	SenderID   string
	ReceiverID string
	Text       string
	Image      string
	IsVoice    bool
}
