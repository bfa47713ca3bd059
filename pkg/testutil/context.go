package testutil

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nameledger/pkg/requestcontext"
)

// WithCaller adds an authenticated account to the request context.
// This simulates what the auth middleware does for signed-in requests.
func WithCaller(req *http.Request, account common.Address) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), account))
}

// WithRequestTime pins the request time the handlers read.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
