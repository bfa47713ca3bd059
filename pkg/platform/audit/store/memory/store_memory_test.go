package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "nameledger/pkg/platform/audit"
	txcontext "nameledger/pkg/platform/tx"
)

func actions(t *testing.T, s *InMemoryStore) []string {
	t.Helper()
	events, err := s.ListAll(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("appends outside a transaction are kept", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Append(ctx, audit.Event{Action: "name_reserved", NameHash: "0x01"}))
		require.NoError(t, s.Append(ctx, audit.Event{Action: "name_reserved", NameHash: "0x02"}))

		byName, err := s.ListByName(ctx, "0x02")
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, "0x02", byName[0].NameHash)

		recent, err := s.ListRecent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "0x02", recent[0].NameHash)
	})

	t.Run("rollback drops only the transaction's events", func(t *testing.T) {
		s := NewInMemoryStore()
		txCtx, journal := txcontext.WithJournal(ctx)

		require.NoError(t, s.Append(txCtx, audit.Event{Action: "escrow_settled", NameHash: "0x01"}))
		require.NoError(t, s.Append(ctx, audit.Event{Action: "name_reserved", NameHash: "0x02"}))
		require.NoError(t, s.Append(txCtx, audit.Event{Action: "name_registered", NameHash: "0x01"}))

		journal.Rollback()

		assert.Equal(t, []string{"name_reserved"}, actions(t, s))
		byName, err := s.ListByName(ctx, "0x01")
		require.NoError(t, err)
		assert.Empty(t, byName)
	})
}
