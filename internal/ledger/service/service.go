// Package service implements the name ledger: reservations, registrations,
// renewals and withdrawals over a record store and a vault.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nameledger/internal/ledger/metrics"
	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/ports"
	dErrors "nameledger/pkg/domain-errors"
	audit "nameledger/pkg/platform/audit"
	"nameledger/pkg/platform/sentinel"
	"nameledger/pkg/requestcontext"
)

const (
	opReserve  = "reserve"
	opRegister = "register"
	opRenew    = "renew"
	opWithdraw = "withdraw"
)

// Service is the registry ledger. It owns the record table through its
// store and serializes every transition per name hash.
type Service struct {
	records        ports.RecordStore
	tx             ports.StoreTx
	vault          ports.Vault
	params         models.Params
	cache          ports.InfoCache
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithInfoCache enables read-through caching for Info.
func WithInfoCache(cache ports.InfoCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a Service. params are validated once here so no
// transition can compute a fee larger than the paid value.
func New(records ports.RecordStore, tx ports.StoreTx, vault ports.Vault, params models.Params, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if tx == nil {
		return nil, errors.New("store transaction is required")
	}
	if vault == nil {
		return nil, errors.New("vault is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		records: records,
		tx:      tx,
		vault:   vault,
		params:  params,
		logger:  slog.Default(),
		tracer:  otel.Tracer("nameledger/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Params returns the deployment constants the ledger runs with.
func (s *Service) Params() models.Params {
	return s.params
}

// transition runs fn with exclusive access to hash and handles the shared
// concerns: tracing, metrics, logging and cache invalidation after commit.
func (s *Service) transition(ctx context.Context, op string, hash models.NameHash, caller models.Account, fn func(ctx context.Context, store ports.RecordStore) error) error {
	ctx, span := s.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.String("ledger.name_hash", hash.Hex()),
		attribute.String("ledger.caller", caller.Hex()),
	))
	defer span.End()

	start := time.Now()
	err := s.tx.RunInTx(ctx, hash, fn)
	s.metrics.ObserveTransition(op, outcome(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		level := slog.LevelInfo
		if !isReason(err) && !dErrors.HasCode(err, dErrors.CodeValidation) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "ledger transition rejected",
			"operation", op,
			"name_hash", hash.Hex(),
			"caller", caller.Hex(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return err
	}

	s.invalidate(ctx, hash)
	s.logger.InfoContext(ctx, "ledger transition applied",
		"operation", op,
		"name_hash", hash.Hex(),
		"caller", caller.Hex(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) invalidate(ctx context.Context, hash models.NameHash) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, hash); err != nil {
		s.logger.WarnContext(ctx, "record cache invalidation failed",
			"name_hash", hash.Hex(),
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

// payout releases amount to account and records the settlement. Zero
// amounts move nothing.
func (s *Service) payout(ctx context.Context, action audit.AuditEvent, rec *models.Record, name string, to models.Account, amount *uint256.Int, now models.Timestamp) error {
	if amount.IsZero() {
		return nil
	}
	if err := s.vault.Release(ctx, to, amount); err != nil {
		return infraError(err, "escrow payout failed")
	}
	return s.emit(ctx, audit.Event{
		Timestamp: now.Time(),
		Action:    string(action),
		NameHash:  rec.Hash.Hex(),
		Name:      name,
		Actor:     requestActor(ctx, to),
		Owner:     to.Hex(),
		Amount:    amount.Dec(),
	})
}

func loadRecord(ctx context.Context, store ports.RecordStore, hash models.NameHash) (*models.Record, error) {
	rec, err := store.Get(ctx, hash)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.EmptyRecord(hash), nil
	}
	if err != nil {
		return nil, infraError(err, "failed to load name record")
	}
	return rec, nil
}

func saveRecord(ctx context.Context, store ports.RecordStore, rec *models.Record) error {
	if err := store.Save(ctx, rec); err != nil {
		return infraError(err, "failed to save name record")
	}
	return nil
}

// reasonError wraps a ledger reason in the matching coded error. The reason
// stays reachable with errors.Is and errors.As.
func reasonError(err error) error {
	var reason models.Reason
	if !errors.As(err, &reason) {
		return err
	}
	code := dErrors.CodeConflict
	if reason.IsAuthorization() {
		code = dErrors.CodeForbidden
	}
	return dErrors.Wrap(reason, code, "")
}

func infraError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func isReason(err error) bool {
	var reason models.Reason
	return errors.As(err, &reason)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var reason models.Reason
	if errors.As(err, &reason) {
		return reason.String()
	}
	if de, ok := dErrors.As(err); ok {
		return string(de.Code)
	}
	return "error"
}

func requireCaller(caller models.Account) error {
	if caller == (models.Account{}) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller account is required")
	}
	return nil
}

// requestActor prefers the authenticated caller over the fallback.
func requestActor(ctx context.Context, fallback models.Account) string {
	if caller, ok := requestcontext.Caller(ctx); ok {
		return caller.Hex()
	}
	return fallback.Hex()
}

func (s *Service) validateName(name string) error {
	return models.ValidateName(name, s.params.MaxNameLength)
}

func (s *Service) quote(name string, value *uint256.Int) (models.Quote, error) {
	if value == nil {
		return models.Quote{}, dErrors.New(dErrors.CodeValidation, "value is required")
	}
	q, err := models.Calculate(value, len(name), s.params)
	if err != nil {
		return models.Quote{}, fmt.Errorf("price %d-byte name: %w", len(name), err)
	}
	return q, nil
}
