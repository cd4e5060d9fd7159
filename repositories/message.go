package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"linguachat/domain"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// StoredMessage is the on-disk JSON layout of a persisted message.
// Timestamps are server-assigned at relay time.
type StoredMessage struct {
	ID             string `json:"id"`
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	Text           string `json:"text"`
	OriginalText   string `json:"originalText"`
	Image          string `json:"image,omitempty"`
	IsVoiceMessage bool   `json:"isVoiceMessage"`
	CreatedAt      int64  `json:"createdAt"`
}

// conversationKey orders the two participants lexicographically so both
// directions of a conversation share one history stream.
func conversationKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "#" + userB
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		conversationKey(message.SenderID, message.ReceiverID),
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetConversation retrieves the messages exchanged between two users using a
// prefix scan. Thanks to the padded timestamp in the key, messages come back
// newest first. It stops once the configured limitMessages is reached and
// returns a cursor for the next page.
func (m MessageRepository) GetConversation(userA, userB string, cursor *string) ([]domain.Message, *string, error) {
	var rawMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", conversationKey(userA, userB))
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastKey == "" {
		// Exhausted page: no cursor, the caller is done.
		return []domain.Message{}, nil, nil
	}

	messages := make([]domain.Message, 0, len(rawMessages))
	for _, b := range rawMessages {
		stored, err := DecodeStoredMessage(b)
		if err != nil {
			return nil, nil, err
		}
		message, err := toMessage(stored)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}

// DecodeStoredMessage unmarshals a raw badger value. Exposed for the
// read-only inspect viewer.
func DecodeStoredMessage(value []byte) (StoredMessage, error) {
	var stored StoredMessage
	err := json.Unmarshal(value, &stored)
	return stored, err
}

func fromMessage(message domain.Message) StoredMessage {
	return StoredMessage{
		ID:             message.ID.String(),
		SenderID:       message.SenderID,
		ReceiverID:     message.ReceiverID,
		Text:           message.TranslatedText,
		OriginalText:   message.OriginalText,
		Image:          message.AttachmentRef,
		IsVoiceMessage: message.IsVoice,
		CreatedAt:      message.CreatedAt.UnixNano(),
	}
}

func toMessage(stored StoredMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             parsedID,
		SenderID:       stored.SenderID,
		ReceiverID:     stored.ReceiverID,
		OriginalText:   stored.OriginalText,
		TranslatedText: stored.Text,
		AttachmentRef:  stored.Image,
		IsVoice:        stored.IsVoiceMessage,
		CreatedAt:      time.Unix(0, stored.CreatedAt).UTC(),
	}, nil
}

// Participants splits a conversation key back into its two user IDs.
// Used by the inspect viewer's row mapper.
func Participants(convKey string) (string, string) {
	parts := strings.SplitN(convKey, "#", 2)
	if len(parts) != 2 {
		return convKey, ""
	}
	return parts[0], parts[1]
}
