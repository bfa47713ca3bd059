package publisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "nameledger/pkg/platform/audit"
	"nameledger/pkg/platform/audit/store/memory"
	"nameledger/pkg/requestcontext"
)

const nameHash = "0x5a1f7c0e4f3f0b4d54a1a2c3f0ad5e36ddc4c1c6a8f9b2e7d1a3c4b5e6f70819"

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func TestPublisher_Emit(t *testing.T) {
	store := memory.NewInMemoryStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pub := New(store, WithClock(func() time.Time { return fixed }))
	defer pub.Close()

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	err := pub.Emit(ctx, audit.Event{
		Action:   string(audit.EventNameRegistered),
		NameHash: nameHash,
		Name:     "AAA",
		Amount:   "970000000000000000",
	})
	require.NoError(t, err)

	events, err := store.ListByName(context.Background(), nameHash)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryFunds, events[0].Category)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, "req-1", events[0].RequestID)
}

func TestPublisher_RejectsIncompleteEvents(t *testing.T) {
	pub := New(memory.NewInMemoryStore())

	err := pub.Emit(context.Background(), audit.Event{NameHash: nameHash})
	require.Error(t, err)

	err = pub.Emit(context.Background(), audit.Event{Action: string(audit.EventNameReserved)})
	require.Error(t, err)
}

func TestPublisher_FailsClosed(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	pub := New(failingStore{},
		WithMetrics(metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	err := pub.Emit(context.Background(), audit.Event{
		Action:   string(audit.EventNameWithdrawn),
		NameHash: nameHash,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PersistFailures))
}

func TestPublisher_CountsByCategory(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	pub := New(memory.NewInMemoryStore(), WithMetrics(metrics))

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventNameReserved), NameHash: nameHash}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventNameRenewed), NameHash: nameHash}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventEscrowSettled), NameHash: nameHash}))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsEmitted.WithLabelValues(string(audit.CategoryClaims))))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.EventsEmitted.WithLabelValues(string(audit.CategoryFunds))))
}

func TestPublisher_ConcurrentEmit(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{
				Action:   string(audit.EventNameReserved),
				NameHash: nameHash,
			})
		}()
	}
	wg.Wait()

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 50)
}
