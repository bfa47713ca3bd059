package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	jwttoken "nameledger/internal/jwt_token"
	"nameledger/internal/ledger"
	"nameledger/internal/ledger/handler"
	ledgermetrics "nameledger/internal/ledger/metrics"
	"nameledger/internal/ledger/monitor"
	"nameledger/internal/ledger/ports"
	"nameledger/internal/ledger/service"
	"nameledger/internal/ledger/store/cache"
	"nameledger/internal/ledger/store/record"
	"nameledger/internal/ledger/vault"
	"nameledger/internal/platform/config"
	"nameledger/internal/platform/httpserver"
	"nameledger/internal/platform/kafka"
	"nameledger/internal/platform/postgres"
	"nameledger/internal/platform/redis"
	ratelimit "nameledger/internal/ratelimit/middleware"
	"nameledger/internal/ratelimit/store/bucket"
	httptransport "nameledger/internal/transport/http"
	"nameledger/pkg/platform/audit"
	"nameledger/pkg/platform/audit/publisher"
	auditmem "nameledger/pkg/platform/audit/store/memory"
	auditpg "nameledger/pkg/platform/audit/store/postgres"
	"nameledger/pkg/platform/audit/worker"
	"nameledger/pkg/platform/circuit"
	txcontext "nameledger/pkg/platform/tx"
)

// backend is the storage the ledger runs on.
type backend struct {
	records ports.RecordStore
	tx      ports.StoreTx
	vault   ports.Vault
	audit   audit.Store
	outbox  *auditpg.Store
	db      *sql.DB
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	if cfg.Postgres.DSN == "" {
		log.WarnContext(ctx, "postgres.dsn not set, ledger state is kept in memory")
		store := record.NewInMemoryStore()
		return &backend{
			records: store,
			tx:      record.NewInMemoryTx(store),
			vault:   vault.NewInMemoryVault(),
			audit:   auditmem.NewInMemoryStore(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	store := record.NewPostgres(db)
	outbox := auditpg.New(db)
	return &backend{
		records: store,
		tx:      record.NewPostgresTx(db, store),
		vault:   vault.NewPostgres(db),
		audit:   outbox,
		outbox:  outbox,
		db:      db,
	}, nil
}

// serve runs the HTTP API, the expiry monitor and, when configured, the
// audit outbox relay until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	params, err := ledger.ParamsFromConfig(cfg.Ledger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := ledgermetrics.New(registry)

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	var checks []httptransport.HealthCheck
	if be.db != nil {
		defer be.db.Close()
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: be.db.PingContext})
	}

	pub := publisher.New(be.audit,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(registry)),
	)
	defer pub.Close()

	var buckets ratelimit.BucketStore = bucket.NewInMemoryBucketStore()
	limitOpts := []ratelimit.Option{ratelimit.WithLogger(log)}
	opts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(pub),
		service.WithMetrics(m),
		service.WithTracer(otel.Tracer("nameledger/ledger")),
	}
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		opts = append(opts, service.WithInfoCache(cache.NewRedisCache(rdb.Client, cache.WithTTL(cfg.Redis.CacheTTL))))
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: rdb.Health})
		buckets = bucket.NewRedisBucketStore(rdb.Client)
		limitOpts = append(limitOpts, ratelimit.WithFallback(bucket.NewInMemoryBucketStore(), circuit.New("ratelimit-redis")))
	}

	svc, err := service.New(be.records, be.tx, be.vault, params, opts...)
	if err != nil {
		return err
	}

	mon, err := monitor.New(be.records, be.vault,
		monitor.WithLogger(log),
		monitor.WithMetrics(m),
		monitor.WithInterval(cfg.Monitor.Interval),
		monitor.WithLimit(cfg.Monitor.Limit),
	)
	if err != nil {
		return err
	}

	var relay *worker.Worker
	if len(cfg.Kafka.Brokers) > 0 && be.outbox != nil {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, kafka.WithLogger(log))
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			return err
		}
		db := be.db
		relay = worker.NewWorker(be.outbox, producer,
			func(ctx context.Context, fn func(ctx context.Context) error) error {
				return txcontext.Run(ctx, db, nil, fn)
			},
			worker.WithLogger(log),
			worker.WithInterval(cfg.Kafka.RelayInterval),
			worker.WithBatchSize(cfg.Kafka.BatchSize),
		)
		checks = append(checks, httptransport.HealthCheck{Name: "kafka", Check: producer.Ping})
	}

	limiter := ratelimit.New(buckets, cfg.RateLimit.Requests, cfg.RateLimit.Window, limitOpts...)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:          log,
		Validator:       jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)),
		Registerer:      registry,
		Gatherer:        registry,
		RequestTimeout:  cfg.Server.RequestTimeout,
		HealthChecks:    checks,
		TransitionLimit: limiter.RateLimit("transitions"),
	}, handler.New(svc, log))
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "nameledger listening", "addr", cfg.Server.Addr, "version", version)
		return httpserver.Serve(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error { return mon.Run(gctx) })
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		log.ErrorContext(ctx, "nameledger stopped", "error", err)
		return err
	}
	log.InfoContext(ctx, "nameledger stopped")
	return nil
}
