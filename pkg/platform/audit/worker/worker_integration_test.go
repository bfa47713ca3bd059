//go:build integration

package worker_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"nameledger/internal/platform/kafka"
	audit "nameledger/pkg/platform/audit"
	auditpg "nameledger/pkg/platform/audit/store/postgres"
	"nameledger/pkg/platform/audit/worker"
	txcontext "nameledger/pkg/platform/tx"
	"nameledger/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	outbox   *auditpg.Store
	producer *kafka.Producer
	topic    string
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.outbox = auditpg.New(s.postgres.DB)
	s.topic = "nameledger.audit." + uuid.NewString()[:8]

	producer, err := kafka.NewProducer(s.redpanda.Brokers, s.topic,
		kafka.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.Require().NoError(producer.EnsureTopic(context.Background(), 1, 1))
	s.producer = producer
}

func (s *RelaySuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.postgres.ResetLedger(context.Background()))
}

func (s *RelaySuite) TestRelaysCommittedEntries() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, action := range []audit.AuditEvent{audit.EventNameReserved, audit.EventNameRegistered} {
		s.Require().NoError(s.outbox.Append(ctx, audit.Event{
			Timestamp: time.Now(),
			Action:    string(action),
			NameHash:  "0xabc",
			Owner:     "0x00000000000000000000000000000000000a11ce",
		}))
	}

	runInTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return txcontext.Run(ctx, s.postgres.DB, nil, fn)
	}
	w := worker.NewWorker(s.outbox, s.producer, runInTx,
		worker.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	n, err := w.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = w.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n, "published entries are not relayed twice")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var actions []string
	for len(actions) < 2 {
		fetches := consumer.PollFetches(ctx)
		s.Require().Empty(fetches.Errors())
		fetches.EachRecord(func(r *kgo.Record) {
			s.Equal("0xabc", string(r.Key))
			event, err := auditpg.Decode(r.Value)
			s.Require().NoError(err)
			actions = append(actions, event.Action)
		})
	}
	s.Equal([]string{string(audit.EventNameReserved), string(audit.EventNameRegistered)}, actions)
}
