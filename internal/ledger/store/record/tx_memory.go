package record

import (
	"context"
	"sync"
	"time"

	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/ports"
	dErrors "nameledger/pkg/domain-errors"
	txcontext "nameledger/pkg/platform/tx"
)

// numShards spreads name hashes over independent locks so transitions on
// different names do not contend.
const numShards = 128

const defaultTxTimeout = 5 * time.Second

// InMemoryTx serializes transitions per name hash with sharded mutexes.
type InMemoryTx struct {
	shards  [numShards]sync.Mutex
	store   *InMemoryStore
	timeout time.Duration
}

func NewInMemoryTx(store *InMemoryStore) *InMemoryTx {
	return &InMemoryTx{store: store, timeout: defaultTxTimeout}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, hash models.NameHash, fn func(ctx context.Context, store ports.RecordStore) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := &t.shards[shardFor(hash)]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	txCtx, journal := txcontext.WithJournal(ctx)
	if err := fn(txCtx, t.store); err != nil {
		journal.Rollback()
		return err
	}
	return nil
}

// shardFor applies FNV-1a to the hash bytes.
func shardFor(hash models.NameHash) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range hash {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numShards)
}
