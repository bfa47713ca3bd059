// Package httputil writes JSON responses and coded errors.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "nameledger/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies read by DecodeJSON.
const maxBodyBytes = 1 << 20

// ReasonError is implemented by errors that carry a machine-readable reason
// alongside their code.
type ReasonError interface {
	error
	Slug() string
}

type errorBody struct {
	Error            string `json:"error"`
	Reason           string `json:"reason,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and body. Uncoded errors are internal and
// their text is never returned to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	body := errorBody{}
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		if code != dErrors.CodeInternal {
			body.ErrorDescription = de.Message
			if body.ErrorDescription == "" && de.Err != nil {
				body.ErrorDescription = de.Err.Error()
			}
		}
	}
	var reason ReasonError
	if errors.As(err, &reason) {
		body.Reason = reason.Slug()
		body.ErrorDescription = reason.Error()
	}
	body.Error = string(code)
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields and
// trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid json body")
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid json body")
	}
	return nil
}
