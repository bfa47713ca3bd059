//go:build integration

package vault_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"

	"nameledger/internal/ledger/vault"
	"nameledger/pkg/platform/sentinel"
	txcontext "nameledger/pkg/platform/tx"
	"nameledger/pkg/testutil/containers"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

type PostgresVaultSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	vault    *vault.PostgresVault
}

func TestPostgresVaultSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresVaultSuite))
}

func (s *PostgresVaultSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.vault = vault.NewPostgres(s.postgres.DB)
}

func (s *PostgresVaultSuite) SetupTest() {
	s.Require().NoError(s.postgres.ResetLedger(context.Background()))
}

func (s *PostgresVaultSuite) TestCollectAndRelease() {
	ctx := context.Background()
	fee, _ := uint256.FromDecimal("30000000000000000")
	locked, _ := uint256.FromDecimal("970000000000000000")

	s.Require().NoError(s.vault.Collect(ctx, alice, fee, locked))
	s.Require().NoError(s.vault.Release(ctx, alice, locked))

	b, err := s.vault.Balances(ctx)
	s.Require().NoError(err)
	s.Equal(fee.Dec(), b.Retained.Dec())
	s.True(b.Escrowed.IsZero())
	s.Equal(locked.Dec(), b.PaidOut.Dec())

	paid, err := s.vault.PaidTo(ctx, alice)
	s.Require().NoError(err)
	s.Equal(locked.Dec(), paid.Dec())
}

func (s *PostgresVaultSuite) TestReleaseBeyondEscrow() {
	ctx := context.Background()
	s.Require().NoError(s.vault.Collect(ctx, alice, uint256.NewInt(1), uint256.NewInt(5)))

	err := s.vault.Release(ctx, alice, uint256.NewInt(6))
	s.True(errors.Is(err, sentinel.ErrInsufficientFunds))

	b, err := s.vault.Balances(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(5), b.Escrowed.Uint64())
}

func (s *PostgresVaultSuite) TestMovementsJoinTransaction() {
	ctx := context.Background()

	err := txcontext.Run(ctx, s.postgres.DB, nil, func(ctx context.Context) error {
		if err := s.vault.Collect(ctx, alice, uint256.NewInt(1), uint256.NewInt(5)); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Error(err)

	b, err := s.vault.Balances(ctx)
	s.Require().NoError(err)
	s.True(b.Retained.IsZero())
	s.True(b.Escrowed.IsZero())
}
