// Package handler exposes the ledger over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/service"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/httputil"
	"nameledger/pkg/requestcontext"
)

// Service defines the ledger operations the handler serves.
type Service interface {
	Reserve(ctx context.Context, hash models.NameHash, caller models.Account, now models.Timestamp) (*models.Record, error)
	Register(ctx context.Context, name string, caller models.Account, now models.Timestamp, value *uint256.Int) (*models.Record, models.Quote, error)
	Renew(ctx context.Context, name string, caller models.Account, now models.Timestamp, value *uint256.Int) (*models.Record, models.Quote, error)
	Withdraw(ctx context.Context, name string, caller models.Account, now models.Timestamp) (*service.WithdrawResult, error)
	Info(ctx context.Context, hash models.NameHash) (*models.Record, error)
	Quote(name string, value *uint256.Int) (models.Quote, error)
}

// Handler wires ledger endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a ledger handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the public read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/names/quote", h.HandleQuote)
	r.Get("/names/{hash}", h.HandleGetRecord)
}

// RegisterProtected mounts the state-changing endpoints. The router must
// authenticate the caller before these run.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/names/reservations", h.HandleReserve)
	r.Post("/names/registrations", h.HandleRegister)
	r.Post("/names/renewals", h.HandleRenew)
	r.Post("/names/withdrawals", h.HandleWithdraw)
}

// HandleReserve handles POST /names/reservations.
func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var req models.ReserveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.reject(ctx, w, "reserve", err)
		return
	}
	hash, err := models.ParseNameHash(req.Hash)
	if err != nil {
		h.reject(ctx, w, "reserve", err)
		return
	}

	now := models.TimestampOf(requestcontext.Now(ctx))
	rec, err := h.service.Reserve(ctx, hash, caller, now)
	if err != nil {
		h.reject(ctx, w, "reserve", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewRecordResponse(rec, now))
}

// HandleRegister handles POST /names/registrations.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.handlePayment(w, r, "register", http.StatusCreated, h.service.Register)
}

// HandleRenew handles POST /names/renewals.
func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	h.handlePayment(w, r, "renew", http.StatusOK, h.service.Renew)
}

type paymentFunc func(ctx context.Context, name string, caller models.Account, now models.Timestamp, value *uint256.Int) (*models.Record, models.Quote, error)

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request, op string, status int, pay paymentFunc) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var req models.PaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.reject(ctx, w, op, err)
		return
	}
	req.Normalize()
	value, err := req.Validate()
	if err != nil {
		h.reject(ctx, w, op, err)
		return
	}

	now := models.TimestampOf(requestcontext.Now(ctx))
	rec, q, err := pay(ctx, req.Name, caller, now, value)
	if err != nil {
		h.reject(ctx, w, op, err)
		return
	}
	httputil.WriteJSON(w, status, models.PaymentResponse{
		Record: models.NewRecordResponse(rec, now),
		Quote:  models.NewQuoteResponse(req.Name, q),
	})
}

// HandleWithdraw handles POST /names/withdrawals.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	var req models.WithdrawRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.reject(ctx, w, "withdraw", err)
		return
	}

	now := models.TimestampOf(requestcontext.Now(ctx))
	res, err := h.service.Withdraw(ctx, req.Name, caller, now)
	if err != nil {
		h.reject(ctx, w, "withdraw", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.WithdrawResponse{
		Hash:  res.Record.Hash.Hex(),
		Owner: res.Record.Owner.Hex(),
		Paid:  res.Paid.Dec(),
	})
}

// HandleGetRecord handles GET /names/{hash}.
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hash, err := models.ParseNameHash(chi.URLParam(r, "hash"))
	if err != nil {
		h.reject(ctx, w, "info", err)
		return
	}
	rec, err := h.service.Info(ctx, hash)
	if err != nil {
		h.reject(ctx, w, "info", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewRecordResponse(rec, models.TimestampOf(requestcontext.Now(ctx))))
}

// HandleQuote handles GET /names/quote?name=...&value=...
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("name")
	value, err := models.ParseAmount(r.URL.Query().Get("value"))
	if err != nil {
		h.reject(ctx, w, "quote", err)
		return
	}
	q, err := h.service.Quote(name, value)
	if err != nil {
		h.reject(ctx, w, "quote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewQuoteResponse(name, q))
}

func (h *Handler) requireCaller(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	caller, ok := requestcontext.Caller(r.Context())
	if !ok || caller == (models.Account{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return models.Account{}, false
	}
	return caller, true
}

// reject logs err at a level matching its cause and writes the error body.
// Ledger reasons and client mistakes are expected traffic.
func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	var reason models.Reason
	switch {
	case errors.As(err, &reason):
		level = slog.LevelInfo
	case dErrors.HasCode(err, dErrors.CodeInternal), dErrors.HasCode(err, dErrors.CodeUnavailable):
		level = slog.LevelError
	case !isCoded(err):
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "ledger request rejected",
		"operation", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func isCoded(err error) bool {
	_, ok := dErrors.As(err)
	return ok
}
