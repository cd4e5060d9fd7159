package runtime

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"linguachat/contract"
	"linguachat/domain"
)

type session struct {
	conn *domain.Connection
	sink contract.EventSink
}

// Registry maps a user identity to its single active connection.
// All mutations go through Register/Unregister under the mutex, so the
// map is linearizable; no component touches it directly.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]session)}
}

// Register unconditionally installs conn as the current connection for its
// user, superseding any prior mapping. The superseded connection stays open
// but is no longer routable; its eventual disconnect is a stale Unregister
// and is ignored.
func (r *Registry) Register(userID string, conn *domain.Connection, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[userID] = session{conn: conn, sink: sink}
}

// Unregister removes the mapping only if the stored connection still carries
// connID. It reports whether a removal actually happened, so callers skip
// the presence broadcast on a stale disconnect.
func (r *Registry) Unregister(userID string, connID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[userID]
	if !ok || current.conn.ID != connID {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Lookup resolves the receiver's live sink. Non-blocking read.
func (r *Registry) Lookup(userID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	return current.sink, true
}

// OnlineUsers returns the sorted key set of the registry at call time.
// Sorting fixes the enumeration order of presence payloads.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.sessions))
	for userID := range r.sessions {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// Sinks snapshots every live connection's sink for a full broadcast.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, s := range r.sessions {
		sinks = append(sinks, s.sink)
	}
	return sinks
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
