package vault

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"nameledger/internal/ledger/models"
	"nameledger/pkg/platform/sentinel"
	txcontext "nameledger/pkg/platform/tx"
)

const (
	entryFee     = "fee"
	entryLock    = "lock"
	entryRelease = "release"
)

// PostgresVault appends every movement to vault_entries and keeps running
// totals in the single vault_balances row. Writes join the transaction in
// context.
type PostgresVault struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresVault {
	return &PostgresVault{db: db}
}

func (v *PostgresVault) Collect(ctx context.Context, from models.Account, fee, locked *uint256.Int) error {
	exec := txcontext.ExecutorFor(ctx, v.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE vault_balances
		SET retained = retained + $1::numeric, escrowed = escrowed + $2::numeric
		WHERE id = 1
	`, fee.Dec(), locked.Dec())
	if err != nil {
		return fmt.Errorf("collect payment: %w", err)
	}
	if err := v.appendEntry(ctx, entryFee, from, fee); err != nil {
		return err
	}
	return v.appendEntry(ctx, entryLock, from, locked)
}

func (v *PostgresVault) Release(ctx context.Context, to models.Account, amount *uint256.Int) error {
	exec := txcontext.ExecutorFor(ctx, v.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE vault_balances
		SET escrowed = escrowed - $1::numeric, paid_out = paid_out + $1::numeric
		WHERE id = 1 AND escrowed >= $1::numeric
	`, amount.Dec())
	if err != nil {
		return fmt.Errorf("release escrow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release escrow: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("release %s to %s: %w", amount.Dec(), to.Hex(), sentinel.ErrInsufficientFunds)
	}
	return v.appendEntry(ctx, entryRelease, to, amount)
}

func (v *PostgresVault) Balances(ctx context.Context) (models.VaultBalances, error) {
	var retained, escrowed, paidOut string
	err := txcontext.ExecutorFor(ctx, v.db).QueryRowContext(ctx, `
		SELECT retained::text, escrowed::text, paid_out::text FROM vault_balances WHERE id = 1
	`).Scan(&retained, &escrowed, &paidOut)
	if err != nil {
		return models.VaultBalances{}, fmt.Errorf("read vault balances: %w", err)
	}
	var b models.VaultBalances
	for _, f := range []struct {
		dst *uint256.Int
		src string
	}{{&b.Retained, retained}, {&b.Escrowed, escrowed}, {&b.PaidOut, paidOut}} {
		if err := f.dst.SetFromDecimal(f.src); err != nil {
			return models.VaultBalances{}, fmt.Errorf("decode vault balance %q: %w", f.src, err)
		}
	}
	return b, nil
}

// PaidTo returns the total released to account.
func (v *PostgresVault) PaidTo(ctx context.Context, account models.Account) (uint256.Int, error) {
	var total string
	err := txcontext.ExecutorFor(ctx, v.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM vault_entries WHERE kind = $1 AND account = $2
	`, entryRelease, account.Bytes()).Scan(&total)
	if err != nil {
		return uint256.Int{}, fmt.Errorf("sum payouts: %w", err)
	}
	var paid uint256.Int
	if err := paid.SetFromDecimal(total); err != nil {
		return uint256.Int{}, fmt.Errorf("decode payouts %q: %w", total, err)
	}
	return paid, nil
}

func (v *PostgresVault) appendEntry(ctx context.Context, kind string, account models.Account, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	_, err := txcontext.ExecutorFor(ctx, v.db).ExecContext(ctx, `
		INSERT INTO vault_entries (id, kind, account, amount, created_at)
		VALUES ($1, $2, $3, $4::numeric, NOW())
	`, uuid.New(), kind, account.Bytes(), amount.Dec())
	if err != nil {
		return fmt.Errorf("append vault entry: %w", err)
	}
	return nil
}
