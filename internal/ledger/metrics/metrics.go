// Package metrics holds the Prometheus collectors for ledger transitions
// and the expiry monitor.
package metrics

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all ledger collectors. A nil *Metrics is a no-op.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	RecordsByState     *prometheus.GaugeVec
	VaultBalance       *prometheus.GaugeVec
	WithdrawableOldest prometheus.Gauge
}

// New registers the ledger collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_transitions_total",
			Help: "Ledger transitions by operation and outcome",
		}, []string{"operation", "outcome"}),
		TransitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nameledger_transition_duration_seconds",
			Help:    "Latency of ledger transitions including the store transaction",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		RecordsByState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nameledger_records",
			Help: "Name records by lifecycle state at the last monitor pass",
		}, []string{"state"}),
		VaultBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nameledger_vault_balance",
			Help: "Vault totals in base units (float approximation)",
		}, []string{"kind"}),
		WithdrawableOldest: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nameledger_withdrawable_oldest_age_seconds",
			Help: "Age of the oldest expired registration still holding escrow",
		}),
	}
}

// ObserveTransition records one transition result.
func (m *Metrics) ObserveTransition(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(operation, outcome).Inc()
	m.TransitionDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetRecordCount sets the gauge for one state.
func (m *Metrics) SetRecordCount(state string, n int) {
	if m == nil {
		return
	}
	m.RecordsByState.WithLabelValues(state).Set(float64(n))
}

// SetVaultBalance exports an amount. Values above 2^53 lose precision.
func (m *Metrics) SetVaultBalance(kind string, amount *uint256.Int) {
	if m == nil {
		return
	}
	m.VaultBalance.WithLabelValues(kind).Set(amount.Float64())
}

// SetWithdrawableOldest sets the age of the oldest unclaimed escrow.
func (m *Metrics) SetWithdrawableOldest(age time.Duration) {
	if m == nil {
		return
	}
	m.WithdrawableOldest.Set(age.Seconds())
}
