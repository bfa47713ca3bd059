package record

import (
	"context"
	"sort"
	"sync"

	"nameledger/internal/ledger/models"
	"nameledger/pkg/platform/sentinel"
	txcontext "nameledger/pkg/platform/tx"
)

// InMemoryStore keeps records in a map. It is pure I/O; every rule lives on
// models.Record. Writes made inside InMemoryTx are undone if the
// transaction fails.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[models.NameHash]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[models.NameHash]*models.Record)}
}

func (s *InMemoryStore) Get(_ context.Context, hash models.NameHash) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemoryStore) Save(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.records[record.Hash]
	s.records[record.Hash] = record.Clone()

	hash := record.Hash
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.records[hash] = prev
		} else {
			delete(s.records, hash)
		}
	})
	return nil
}

// GetMany returns the stored records among hashes; absent hashes are skipped.
func (s *InMemoryStore) GetMany(_ context.Context, hashes []models.NameHash) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(hashes))
	for _, h := range hashes {
		if r, ok := s.records[h]; ok {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListExpiredLocked(_ context.Context, now models.Timestamp, limit int) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if r.StateAt(now) == models.StateWithdrawable {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RegistrationExpiresAt < out[j].RegistrationExpiresAt
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) CountByState(_ context.Context, now models.Timestamp) (map[models.State]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.State]int, 4)
	for _, r := range s.records {
		counts[r.StateAt(now)]++
	}
	return counts, nil
}
