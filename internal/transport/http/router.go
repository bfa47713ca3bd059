// Package httptransport assembles the HTTP surface of the ledger: the
// middleware chain, health and metrics endpoints and the ledger routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nameledger/pkg/platform/httputil"
	auth "nameledger/pkg/platform/middleware/auth"
	request "nameledger/pkg/platform/middleware/request"
	"nameledger/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a feature's routes. Protected routes are served
// behind account authentication.
type RouteRegistrar interface {
	Register(r chi.Router)
	RegisterProtected(r chi.Router)
}

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config carries everything NewRouter needs.
type Config struct {
	Logger         *slog.Logger
	Validator      auth.JWTValidator
	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	HealthChecks   []HealthCheck

	// TransitionLimit, when set, wraps every authenticated route.
	TransitionLimit func(http.Handler) http.Handler
	// Clock overrides the request time; nil uses the wall clock.
	Clock func() time.Time
}

// NewRouter builds the chi router for the given features.
func NewRouter(cfg Config, features ...RouteRegistrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	if cfg.Clock != nil {
		r.Use(requesttime.WithClock(cfg.Clock))
	} else {
		r.Use(requesttime.Middleware)
	}
	r.Use(request.Logger(logger))
	r.Use(request.Timeout(cfg.RequestTimeout))
	if cfg.Registerer != nil {
		r.Use(request.Latency(request.NewLatencyHistogram(cfg.Registerer)))
	}

	r.Get("/healthz", healthHandler(cfg.HealthChecks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		for _, f := range features {
			f.Register(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(auth.RequireAccount(cfg.Validator, logger))
		if cfg.TransitionLimit != nil {
			r.Use(cfg.TransitionLimit)
		}
		for _, f := range features {
			f.RegisterProtected(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error":             "not_found",
			"error_description": "route not found",
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := c.Check(ctx)
			cancel()
			if err != nil {
				resp.Checks[c.Name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
