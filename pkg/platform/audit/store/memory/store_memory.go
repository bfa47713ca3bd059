package memory

import (
	"context"
	"slices"
	"sync"

	audit "nameledger/pkg/platform/audit"
	txcontext "nameledger/pkg/platform/tx"
)

type entry struct {
	seq   uint64
	event audit.Event
}

// InMemoryStore keeps audit events in insertion order. Appends made inside
// a journaled transaction are dropped again if it rolls back.
type InMemoryStore struct {
	mu      sync.RWMutex
	next    uint64
	entries []entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	seq := s.next
	s.entries = append(s.entries, entry{seq: seq, event: event})

	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries = slices.DeleteFunc(s.entries, func(e entry) bool { return e.seq == seq })
	})
	return nil
}

// ListByName returns the events recorded for one name hash, oldest first.
func (s *InMemoryStore) ListByName(_ context.Context, nameHash string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.entries {
		if e.event.NameHash == nameHash {
			out = append(out, e.event)
		}
	}
	return out, nil
}

// ListAll returns every event, oldest first.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.event)
	}
	return out, nil
}

// ListRecent returns the most recent limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.entries)-limit, 0)
	out := make([]audit.Event, 0, len(s.entries)-start)
	for _, e := range s.entries[start:] {
		out = append(out, e.event)
	}
	return out, nil
}
