package vault

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"

	"nameledger/pkg/platform/sentinel"
	txcontext "nameledger/pkg/platform/tx"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type InMemoryVaultSuite struct {
	suite.Suite
	vault *InMemoryVault
	ctx   context.Context
}

func TestInMemoryVaultSuite(t *testing.T) {
	suite.Run(t, new(InMemoryVaultSuite))
}

func (s *InMemoryVaultSuite) SetupTest() {
	s.vault = NewInMemoryVault()
	s.ctx = context.Background()
}

func (s *InMemoryVaultSuite) TestCollectAndRelease() {
	s.Run("collect splits fee and escrow", func() {
		s.Require().NoError(s.vault.Collect(s.ctx, alice, uint256.NewInt(3), uint256.NewInt(97)))
		b, err := s.vault.Balances(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(3), b.Retained.Uint64())
		s.Equal(uint64(97), b.Escrowed.Uint64())
	})

	s.Run("release moves escrow to the account", func() {
		s.Require().NoError(s.vault.Release(s.ctx, alice, uint256.NewInt(40)))
		b, err := s.vault.Balances(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(57), b.Escrowed.Uint64())
		s.Equal(uint64(40), b.PaidOut.Uint64())

		paid, err := s.vault.PaidTo(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal(uint64(40), paid.Uint64())
	})

	s.Run("release beyond escrow fails", func() {
		err := s.vault.Release(s.ctx, bob, uint256.NewInt(58))
		s.True(errors.Is(err, sentinel.ErrInsufficientFunds))

		paid, err := s.vault.PaidTo(s.ctx, bob)
		s.Require().NoError(err)
		s.True(paid.IsZero())
	})

	s.Run("collect rejects escrow overflow", func() {
		max := new(uint256.Int).SetAllOne()
		s.Error(s.vault.Collect(s.ctx, alice, uint256.NewInt(0), max))
	})
}

func (s *InMemoryVaultSuite) TestRollback() {
	s.Require().NoError(s.vault.Collect(s.ctx, alice, uint256.NewInt(1), uint256.NewInt(10)))

	ctx, journal := txcontext.WithJournal(s.ctx)
	s.Require().NoError(s.vault.Release(ctx, alice, uint256.NewInt(10)))
	s.Require().NoError(s.vault.Collect(ctx, bob, uint256.NewInt(2), uint256.NewInt(20)))
	journal.Rollback()

	b, err := s.vault.Balances(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), b.Retained.Uint64())
	s.Equal(uint64(10), b.Escrowed.Uint64())
	s.True(b.PaidOut.IsZero())

	paid, err := s.vault.PaidTo(s.ctx, alice)
	s.Require().NoError(err)
	s.True(paid.IsZero())
}

func (s *InMemoryVaultSuite) TestConcurrentCollect() {
	const workers = 64
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.vault.Collect(s.ctx, alice, uint256.NewInt(1), uint256.NewInt(2)))
		}()
	}
	wg.Wait()

	b, err := s.vault.Balances(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(workers), b.Retained.Uint64())
	s.Equal(uint64(2*workers), b.Escrowed.Uint64())
}
