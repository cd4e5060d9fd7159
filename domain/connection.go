package domain

import (
	"time"

	"github.com/google/uuid"
)

// Connection is the handle the registry stores for a live socket.
// The ID disambiguates two connections opened by the same user: a stale
// disconnect carries the old ID and must not evict a newer connection.
type Connection struct {
	ID          uuid.UUID
	UserID      string
	ConnectedAt time.Time
}

func NewConnection(userID string) *Connection {
	return &Connection{
		ID:          uuid.New(),
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
	}
}
