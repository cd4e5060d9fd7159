// Package domain contains core concepts of the relay.
// This file defines Message records and related rules.
// Messages are created once by the relay and immutable afterwards.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLanguage is the system default target language.
// Translation is skipped entirely when the receiver reads this language.
const DefaultLanguage = "en"

// Message represents an immutable chat message.
// TranslatedText equals OriginalText whenever translation was skipped
// (empty text, default target language, voice message) or failed.
type Message struct {
	ID             uuid.UUID
	SenderID       string
	ReceiverID     string
	OriginalText   string
	TranslatedText string
	AttachmentRef  string
	IsVoice        bool
	CreatedAt      time.Time
}
