// Package realtime tracks live websocket connections per user and fans
// notification envelopes out to them.
package realtime

import (
	"context"
	"sync"

	"recipehub-notifier/internal/common/metrics"
)

// Conn is one live client connection. Implementations must make Send safe
// for concurrent use.
type Conn interface {
	ID() string
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Registry is an in-memory index of live connections keyed by user id.
// A user may hold several entries at once (multiple tabs or devices).
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]map[string]Conn)}
}

// Register adds a connection under the given user. Registering the same
// connection id twice replaces the previous entry.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[string]Conn)
		r.users[userID] = conns
	}
	if _, replaced := conns[conn.ID()]; !replaced {
		metrics.LiveConnections.Inc()
	}
	conns[conn.ID()] = conn
}

// Unregister removes one connection. The user's entry is dropped entirely
// when its last connection goes away, so an idle registry holds no keys.
func (r *Registry) Unregister(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		return
	}
	if _, ok := conns[connID]; !ok {
		return
	}
	delete(conns, connID)
	metrics.LiveConnections.Dec()
	if len(conns) == 0 {
		delete(r.users, userID)
	}
}

// ConnectionsFor returns a snapshot of the user's live connections. The
// slice is safe to iterate without holding any lock.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.users[userID]
	if !ok {
		return nil
	}
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// Len returns the total number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, conns := range r.users {
		total += len(conns)
	}
	return total
}
