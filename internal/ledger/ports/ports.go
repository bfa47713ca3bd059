// Package ports declares the collaborators the ledger service depends on.
package ports

import (
	"context"

	"github.com/holiman/uint256"

	"nameledger/internal/ledger/models"
	audit "nameledger/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// RecordStore is pure I/O over records keyed by name hash.
// Get returns sentinel.ErrNotFound for a hash that was never written.
type RecordStore interface {
	Get(ctx context.Context, hash models.NameHash) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error
	ListExpiredLocked(ctx context.Context, now models.Timestamp, limit int) ([]*models.Record, error)
	CountByState(ctx context.Context, now models.Timestamp) (map[models.State]int, error)
}

// StoreTx grants exclusive access to one record for the duration of fn.
// If fn returns an error nothing it did through the store is kept.
type StoreTx interface {
	RunInTx(ctx context.Context, hash models.NameHash, fn func(ctx context.Context, store RecordStore) error) error
}

// Vault moves value in and out of the ledger.
type Vault interface {
	// Collect takes a payment from an account: fee is retained, locked is escrowed.
	Collect(ctx context.Context, from models.Account, fee, locked *uint256.Int) error
	// Release pays escrowed value to an account.
	Release(ctx context.Context, to models.Account, amount *uint256.Int) error
	Balances(ctx context.Context) (models.VaultBalances, error)
}

// InfoCache is a read-through cache for Info. Find returns
// sentinel.ErrCacheMiss when no entry is held.
type InfoCache interface {
	Find(ctx context.Context, hash models.NameHash) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error
	Invalidate(ctx context.Context, hash models.NameHash) error
}

// AuditPublisher persists audit events. Emit failures abort the transition.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
