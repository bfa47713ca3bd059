// Package monitor periodically reports on expired registrations whose
// escrow has not been withdrawn. It never changes ledger state: only the
// owner may withdraw.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nameledger/internal/ledger/metrics"
	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/ports"
)

const (
	defaultInterval = time.Minute
	defaultLimit    = 100
)

// Report is the outcome of one monitor pass.
type Report struct {
	At           models.Timestamp
	Counts       map[models.State]int
	Withdrawable []*models.Record
	Balances     models.VaultBalances
}

// Monitor sweeps the record store on an interval.
type Monitor struct {
	records  ports.RecordStore
	vault    ports.Vault
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	limit    int
	clock    func() time.Time
}

type Option func(*Monitor)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLimit caps how many withdrawable records a pass lists.
func WithLimit(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.limit = n
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Monitor) { m.clock = clock }
}

func New(records ports.RecordStore, vault ports.Vault, opts ...Option) (*Monitor, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if vault == nil {
		return nil, errors.New("vault is required")
	}
	m := &Monitor{
		records:  records,
		vault:    vault,
		logger:   slog.Default(),
		interval: defaultInterval,
		limit:    defaultLimit,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Run sweeps once immediately and then on every tick until ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	t := time.NewTicker(m.interval)
	defer t.Stop()

	m.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			m.sweep(ctx)
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	if _, err := m.SweepOnce(ctx); err != nil && ctx.Err() == nil {
		m.logger.WarnContext(ctx, "expiry monitor pass failed", "error", err)
	}
}

// SweepOnce counts records by state, lists the oldest withdrawable ones and
// exports the results as gauges.
func (m *Monitor) SweepOnce(ctx context.Context) (*Report, error) {
	start := time.Now()
	now := models.TimestampOf(m.clock())

	counts, err := m.records.CountByState(ctx, now)
	if err != nil {
		return nil, err
	}
	withdrawable, err := m.records.ListExpiredLocked(ctx, now, m.limit)
	if err != nil {
		return nil, err
	}
	balances, err := m.vault.Balances(ctx)
	if err != nil {
		return nil, err
	}

	for _, state := range []models.State{models.StateFree, models.StateReserved, models.StateRegistered, models.StateWithdrawable} {
		m.metrics.SetRecordCount(string(state), counts[state])
	}
	m.metrics.SetVaultBalance("retained", &balances.Retained)
	m.metrics.SetVaultBalance("escrowed", &balances.Escrowed)
	m.metrics.SetVaultBalance("paid_out", &balances.PaidOut)

	var oldest time.Duration
	if len(withdrawable) > 0 {
		oldest = now.Time().Sub(withdrawable[0].RegistrationExpiresAt.Time())
	}
	m.metrics.SetWithdrawableOldest(oldest)

	if len(withdrawable) > 0 {
		m.logger.InfoContext(ctx, "unclaimed escrow awaiting withdrawal",
			"withdrawable", counts[models.StateWithdrawable],
			"oldest_name_hash", withdrawable[0].Hash.Hex(),
			"oldest_age", oldest,
			"escrowed", balances.Escrowed.Dec(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}

	return &Report{
		At:           now,
		Counts:       counts,
		Withdrawable: withdrawable,
		Balances:     balances,
	}, nil
}
