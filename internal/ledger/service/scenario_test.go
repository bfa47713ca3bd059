package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/store/record"
	"nameledger/internal/ledger/vault"
	"nameledger/pkg/testutil"
)

func newScenarioService(t *testing.T) *Service {
	t.Helper()
	store := record.NewInMemoryStore()
	svc, err := New(store, record.NewInMemoryTx(store), vault.NewInMemoryVault(), models.DefaultParams(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return svc
}

func TestScenario_RegisterWithOneEther(t *testing.T) {
	ctx := context.Background()
	svc := newScenarioService(t)

	testutil.Given(t, "alice reserved AAA", func(t *testing.T) {
		_, err := svc.Reserve(ctx, models.HashName("AAA"), alice, start)
		require.NoError(t, err)
	})

	var (
		rec   *models.Record
		quote models.Quote
	)
	testutil.When(t, "alice registers it with 1 ether", func(t *testing.T) {
		var err error
		rec, quote, err = svc.Register(ctx, "AAA", alice, start+10, ether(1))
		require.NoError(t, err)
	})

	testutil.Then(t, "3% is kept as fee and the rest buys 970000000 seconds", func(t *testing.T) {
		assert.Equal(t, "30000000000000000", quote.Fee.Dec())
		assert.Equal(t, lockForOneEth, quote.Locked.Dec())
		assert.Equal(t, uint64(aaaDuration), quote.Duration)
		assert.Equal(t, lockForOneEth, rec.LockedAmount.Dec())
		assert.Equal(t, start+10+aaaDuration, rec.RegistrationExpiresAt)
	})
}

func TestScenario_LapsedReservationIsTakenOver(t *testing.T) {
	ctx := context.Background()
	svc := newScenarioService(t)
	hash := models.HashName("AAA")

	testutil.Given(t, "alice reserved AAA", func(t *testing.T) {
		_, err := svc.Reserve(ctx, hash, alice, start)
		require.NoError(t, err)
	})

	testutil.When(t, "bob reserves while the reservation holds", func(t *testing.T) {
		_, err := svc.Reserve(ctx, hash, bob, start+59)
		assert.ErrorIs(t, err, models.ErrNameAlreadyReserved)
	})

	testutil.When(t, "bob reserves once the reservation lapsed", func(t *testing.T) {
		rec, err := svc.Reserve(ctx, hash, bob, start+60)
		require.NoError(t, err)
		assert.Equal(t, bob, rec.Owner)
	})

	testutil.Then(t, "alice can no longer register", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "AAA", alice, start+61, ether(1))
		assert.ErrorIs(t, err, models.ErrIncorrectOwner)
	})
}
