// internal/notification/memory_store.go
package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("notification not found")

// MemoryStore is an in-memory Store for tests and local development. It keeps
// the same idempotency contract as the mongo implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	byJobID  map[string]Notification
	failures []FailureEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byJobID: make(map[string]Notification),
	}
}

func (s *MemoryStore) Save(_ context.Context, n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byJobID[n.JobID]; ok {
		return existing, nil
	}
	s.byJobID[n.JobID] = n
	return n, nil
}

func (s *MemoryStore) LogFailure(_ context.Context, entry FailureEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, entry)
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID string, limit int64) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var out []Notification
	for _, n := range s.byJobID {
		if n.RecipientID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, userID, notifID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for jobID, n := range s.byJobID {
		if n.ID == notifID && n.RecipientID == userID {
			n.Read = true
			s.byJobID[jobID] = n
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) CountUnread(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.byJobID {
		if n.RecipientID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

// Failures returns a copy of the recorded failure entries.
func (s *MemoryStore) Failures() []FailureEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FailureEntry, len(s.failures))
	copy(out, s.failures)
	return out
}

// Count returns the number of stored notifications.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byJobID)
}
