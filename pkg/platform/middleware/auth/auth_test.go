package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"nameledger/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

func TestRequireAccount(t *testing.T) {
	alice := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cases := []struct {
		name      string
		header    string
		validator stubValidator
		want      int
	}{
		{"missing header", "", stubValidator{}, http.StatusUnauthorized},
		{"not a bearer token", "Basic YWxpY2U6cHc=", stubValidator{}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", stubValidator{err: errors.New("invalid token")}, http.StatusUnauthorized},
		{"token without account", "Bearer ok", stubValidator{claims: &JWTClaims{JTI: "1"}}, http.StatusUnauthorized},
		{"valid token", "Bearer ok", stubValidator{claims: &JWTClaims{Account: alice, JTI: "1"}}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var caller common.Address
			h := RequireAccount(tc.validator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				caller, _ = requestcontext.Caller(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodPost, "/names/reservations", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.want, rr.Code)
			if tc.want == http.StatusNoContent {
				assert.Equal(t, alice, caller)
			} else {
				assert.Contains(t, rr.Body.String(), "unauthorized")
			}
		})
	}
}
