// Package middleware throttles ledger transitions per caller.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nameledger/internal/ratelimit/models"
	"nameledger/pkg/platform/circuit"
	"nameledger/pkg/platform/httputil"
	request "nameledger/pkg/platform/middleware/request"
	"nameledger/pkg/requestcontext"
)

// BucketStore counts requests in a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	store    BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limit    int
	window   time.Duration
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback counts in fallback while the primary store keeps failing.
// Responses served from the fallback carry X-RateLimit-Status: degraded.
func WithFallback(fallback BucketStore, breaker *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.fallback = fallback
		m.breaker = breaker
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New allows limit requests per window for each caller.
func New(store BucketStore, limit int, window time.Duration, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fallback != nil && m.breaker == nil {
		m.breaker = circuit.New("ratelimit")
	}
	if m.disabled || m.limit <= 0 {
		m.disabled = true
		m.logger.Info("transition rate limiting disabled")
	}
	return m
}

// RateLimit keys requests by authenticated caller, falling back to the client
// IP. Store failures let the request through unless a fallback is set.
func (m *Middleware) RateLimit(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			subject := request.ClientIP(r)
			if caller, ok := requestcontext.Caller(ctx); ok {
				subject = caller.Hex()
			}

			result, degraded, err := m.allow(ctx, models.NewKey(class, subject))
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"error", err,
					"class", class,
					"request_id", request.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.logger.InfoContext(ctx, "rate limit exceeded",
					"class", class,
					"subject", subject,
					"request_id", request.GetRequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow consults the primary store, switching to the fallback while the
// breaker is open.
func (m *Middleware) allow(ctx context.Context, key string) (*models.Result, bool, error) {
	result, err := m.store.Allow(ctx, key, m.limit, m.window)
	if m.fallback == nil {
		return result, false, err
	}

	if err != nil {
		useFallback, change := m.breaker.RecordFailure()
		if change.Opened {
			m.logger.WarnContext(ctx, "rate limit store unavailable, using fallback",
				"breaker", m.breaker.Name(),
				"error", err,
			)
		}
		if !useFallback {
			return nil, false, err
		}
		result, err = m.fallback.Allow(ctx, key, m.limit, m.window)
		return result, true, err
	}

	usePrimary, change := m.breaker.RecordSuccess()
	if change.Closed {
		m.logger.InfoContext(ctx, "rate limit store recovered", "breaker", m.breaker.Name())
	}
	if !usePrimary {
		result, err = m.fallback.Allow(ctx, key, m.limit, m.window)
		return result, true, err
	}
	return result, false, nil
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many ledger transitions. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
