// Package presence maintains the identity ↔ live connection binding.
// At most one connection is bound per identity; absence from the map is
// what "offline" means. The users-online broadcast that must follow every
// bind and unbind is the gateway's job, so this package stays free of any
// event knowledge.
package presence

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Tracker is safe for concurrent use. C is whatever the transport layer
// uses as a connection handle.
type Tracker[C comparable] struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]C
	byConn map[C]uuid.UUID
}

func NewTracker[C comparable]() *Tracker[C] {
	return &Tracker[C]{
		byUser: make(map[uuid.UUID]C),
		byConn: make(map[C]uuid.UUID),
	}
}

// Bind associates the identity with conn, replacing any prior binding.
// The superseded connection is left open but unresolvable: its future
// events address a now-stale identity and must be ignored by callers.
func (t *Tracker[C]) Bind(userID uuid.UUID, conn C) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.byUser[userID]; ok {
		delete(t.byConn, old)
	}
	t.byUser[userID] = conn
	t.byConn[conn] = userID
}

// Unbind removes the binding only when conn is the one currently stored.
// The guard protects against a stale disconnect racing a newer binding.
// It reports whether anything was removed.
func (t *Tracker[C]) Unbind(userID uuid.UUID, conn C) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.byUser[userID]
	if !ok || current != conn {
		return false
	}
	delete(t.byUser, userID)
	delete(t.byConn, conn)
	return true
}

// Resolve returns the identity bound to conn, if any.
func (t *Tracker[C]) Resolve(conn C) (uuid.UUID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	userID, ok := t.byConn[conn]
	return userID, ok
}

// Lookup returns the connection bound to the identity, if any.
func (t *Tracker[C]) Lookup(userID uuid.UUID) (C, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conn, ok := t.byUser[userID]
	return conn, ok
}

func (t *Tracker[C]) IsOnline(userID uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byUser[userID]
	return ok
}

// Online returns the full online identity set, sorted for deterministic
// broadcasts.
func (t *Tracker[C]) Online() []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(t.byUser))
	for id := range t.byUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
