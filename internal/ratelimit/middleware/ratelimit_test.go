package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nameledger/internal/ratelimit/models"
	"nameledger/internal/ratelimit/store/bucket"
	"nameledger/pkg/platform/circuit"
	"nameledger/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("redis: connection refused")
}

func newHandler(store BucketStore, limit int, opts ...Option) http.Handler {
	opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	m := New(store, limit, time.Minute, opts...)
	return m.RateLimit("reservations")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
}

func post(h http.Handler, caller common.Address, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/names/reservations", nil)
	req.RemoteAddr = remoteAddr
	if caller != (common.Address{}) {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), caller))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit(t *testing.T) {
	alice := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob := common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	t.Run("callers are limited independently", func(t *testing.T) {
		h := newHandler(bucket.NewInMemoryBucketStore(), 2)

		assert.Equal(t, http.StatusCreated, post(h, alice, "10.0.0.1:1").Code)
		rr := post(h, alice, "10.0.0.1:1")
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

		rr = post(h, alice, "10.0.0.1:1")
		require.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		var body models.ExceededResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "rate_limit_exceeded", body.Error)

		assert.Equal(t, http.StatusCreated, post(h, bob, "10.0.0.1:1").Code, "same IP, different caller")
	})

	t.Run("anonymous requests are keyed by client IP", func(t *testing.T) {
		h := newHandler(bucket.NewInMemoryBucketStore(), 1)
		assert.Equal(t, http.StatusCreated, post(h, common.Address{}, "10.0.0.1:1").Code)
		assert.Equal(t, http.StatusTooManyRequests, post(h, common.Address{}, "10.0.0.1:2").Code)
		assert.Equal(t, http.StatusCreated, post(h, common.Address{}, "10.0.0.2:1").Code)
	})

	t.Run("store failure lets requests through", func(t *testing.T) {
		h := newHandler(failingStore{}, 1)
		assert.Equal(t, http.StatusCreated, post(h, alice, "10.0.0.1:1").Code)
		assert.Equal(t, http.StatusCreated, post(h, alice, "10.0.0.1:1").Code)
	})

	t.Run("disabled middleware never checks the store", func(t *testing.T) {
		h := newHandler(failingStore{}, 1, WithDisabled(true))
		rr := post(h, alice, "10.0.0.1:1")
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("non-positive limit disables limiting", func(t *testing.T) {
		h := newHandler(bucket.NewInMemoryBucketStore(), 0)
		for range 3 {
			assert.Equal(t, http.StatusCreated, post(h, alice, "10.0.0.1:1").Code)
		}
	})

	t.Run("open breaker counts in the fallback", func(t *testing.T) {
		breaker := circuit.New("ratelimit", circuit.WithFailureThreshold(2))
		h := newHandler(failingStore{}, 1, WithFallback(bucket.NewInMemoryBucketStore(), breaker))

		rr := post(h, alice, "10.0.0.1:1")
		assert.Equal(t, http.StatusCreated, rr.Code, "below the threshold the request passes unchecked")
		assert.Empty(t, rr.Header().Get("X-RateLimit-Status"))

		rr = post(h, alice, "10.0.0.1:1")
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
		assert.True(t, breaker.IsOpen())

		rr = post(h, alice, "10.0.0.1:1")
		assert.Equal(t, http.StatusTooManyRequests, rr.Code, "fallback enforces the limit")
		assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
	})
}
