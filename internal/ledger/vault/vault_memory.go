// Package vault accounts for value paid into and out of the ledger.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"nameledger/internal/ledger/models"
	"nameledger/pkg/platform/sentinel"
	txcontext "nameledger/pkg/platform/tx"
)

// InMemoryVault keeps balances in process. Movements made inside a ledger
// transaction are reverted if the transaction fails.
type InMemoryVault struct {
	mu       sync.Mutex
	retained uint256.Int
	escrowed uint256.Int
	paidOut  uint256.Int
	paidTo   map[models.Account]*uint256.Int
}

func NewInMemoryVault() *InMemoryVault {
	return &InMemoryVault{paidTo: make(map[models.Account]*uint256.Int)}
}

func (v *InMemoryVault) Collect(ctx context.Context, _ models.Account, fee, locked *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, overflow := new(uint256.Int).AddOverflow(&v.escrowed, locked); overflow {
		return fmt.Errorf("escrow overflow")
	}
	if _, overflow := new(uint256.Int).AddOverflow(&v.retained, fee); overflow {
		return fmt.Errorf("retained overflow")
	}
	v.retained.Add(&v.retained, fee)
	v.escrowed.Add(&v.escrowed, locked)

	fee, locked = fee.Clone(), locked.Clone()
	txcontext.OnRollback(ctx, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.retained.Sub(&v.retained, fee)
		v.escrowed.Sub(&v.escrowed, locked)
	})
	return nil
}

func (v *InMemoryVault) Release(ctx context.Context, to models.Account, amount *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if amount.Gt(&v.escrowed) {
		return fmt.Errorf("release %s to %s: %w", amount.Dec(), to.Hex(), sentinel.ErrInsufficientFunds)
	}
	v.escrowed.Sub(&v.escrowed, amount)
	v.paidOut.Add(&v.paidOut, amount)
	paid, ok := v.paidTo[to]
	if !ok {
		paid = new(uint256.Int)
		v.paidTo[to] = paid
	}
	paid.Add(paid, amount)

	amount = amount.Clone()
	txcontext.OnRollback(ctx, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.escrowed.Add(&v.escrowed, amount)
		v.paidOut.Sub(&v.paidOut, amount)
		v.paidTo[to].Sub(v.paidTo[to], amount)
	})
	return nil
}

func (v *InMemoryVault) Balances(_ context.Context) (models.VaultBalances, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return models.VaultBalances{
		Retained: v.retained,
		Escrowed: v.escrowed,
		PaidOut:  v.paidOut,
	}, nil
}

// PaidTo returns the total released to account.
func (v *InMemoryVault) PaidTo(_ context.Context, account models.Account) (uint256.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if paid, ok := v.paidTo[account]; ok {
		return *paid, nil
	}
	return uint256.Int{}, nil
}
