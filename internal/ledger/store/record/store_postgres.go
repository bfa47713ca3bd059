package record

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/lib/pq"

	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/ports"
	"nameledger/pkg/platform/sentinel"
	txcontext "nameledger/pkg/platform/tx"
)

// PostgresStore persists records in the name_records table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `name_hash, owner, reserve_expires_at, locked_amount::text, registration_expires_at`

// Get reads a record. Inside a transaction the row is locked FOR UPDATE.
func (s *PostgresStore) Get(ctx context.Context, hash models.NameHash) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM name_records WHERE name_hash = $1`
	if _, ok := txcontext.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	record, err := scanRecord(txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, hash.Bytes()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get name record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("name record is required")
	}
	query := `
		INSERT INTO name_records (name_hash, owner, reserve_expires_at, locked_amount, registration_expires_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, NOW())
		ON CONFLICT (name_hash) DO UPDATE SET
			owner = EXCLUDED.owner,
			reserve_expires_at = EXCLUDED.reserve_expires_at,
			locked_amount = EXCLUDED.locked_amount,
			registration_expires_at = EXCLUDED.registration_expires_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		record.Hash.Bytes(),
		record.Owner.Bytes(),
		int64(record.ReserveExpiresAt),
		record.LockedAmount.Dec(),
		int64(record.RegistrationExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("save name record: %w", err)
	}
	return nil
}

// GetMany returns the stored records among hashes; absent hashes are skipped.
func (s *PostgresStore) GetMany(ctx context.Context, hashes []models.NameHash) ([]*models.Record, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	keys := make([][]byte, len(hashes))
	for i, h := range hashes {
		keys[i] = h.Bytes()
	}
	query := `SELECT ` + recordColumns + ` FROM name_records WHERE name_hash = ANY($1)`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("get name records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) ListExpiredLocked(ctx context.Context, now models.Timestamp, limit int) ([]*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM name_records
		WHERE registration_expires_at <= $1 AND reserve_expires_at <= $1 AND locked_amount > 0
		ORDER BY registration_expires_at
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, int64(now), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired name records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) CountByState(ctx context.Context, now models.Timestamp) (map[models.State]int, error) {
	query := `
		SELECT CASE
			WHEN registration_expires_at > $1 THEN 'registered'
			WHEN reserve_expires_at > $1 THEN 'reserved'
			WHEN locked_amount > 0 THEN 'withdrawable'
			ELSE 'free'
		END AS state, COUNT(*)
		FROM name_records
		GROUP BY 1
	`
	rows, err := s.db.QueryContext(ctx, query, int64(now))
	if err != nil {
		return nil, fmt.Errorf("count name records: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.State]int, 4)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan name record count: %w", err)
		}
		counts[models.State(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate name record counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		hash, owner           []byte
		reserveAt, registerAt int64
		locked                string
	)
	if err := row.Scan(&hash, &owner, &reserveAt, &locked, &registerAt); err != nil {
		return nil, err
	}
	amount, err := uint256.FromDecimal(locked)
	if err != nil {
		return nil, fmt.Errorf("decode locked amount %q: %w", locked, err)
	}
	r := &models.Record{
		Hash:                  common.BytesToHash(hash),
		Owner:                 common.BytesToAddress(owner),
		ReserveExpiresAt:      models.Timestamp(reserveAt),
		RegistrationExpiresAt: models.Timestamp(registerAt),
	}
	r.LockedAmount.Set(amount)
	return r, nil
}

func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	var out []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan name record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate name records: %w", err)
	}
	return out, nil
}

// PostgresTx runs transitions in a SQL transaction. A transaction-scoped
// advisory lock on the hash serializes writers even before the row exists.
type PostgresTx struct {
	db    *sql.DB
	store *PostgresStore
}

func NewPostgresTx(db *sql.DB, store *PostgresStore) *PostgresTx {
	return &PostgresTx{db: db, store: store}
}

func (t *PostgresTx) RunInTx(ctx context.Context, hash models.NameHash, fn func(ctx context.Context, store ports.RecordStore) error) error {
	return txcontext.Run(ctx, t.db, nil, func(ctx context.Context) error {
		key := int64(binary.BigEndian.Uint64(hash[:8]))
		if _, err := txcontext.ExecutorFor(ctx, t.db).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return fmt.Errorf("lock name record: %w", err)
		}
		return fn(ctx, t.store)
	})
}
