// Package models holds the rate limiting result and response types.
package models

import (
	"strings"
	"time"
)

// Result is the outcome of one limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the number of seconds until the next request can pass.
	RetryAfter int
}

// ExceededResponse is the body written when a caller is over its limit.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

// NewKey builds a bucket key, e.g. "rl:reservations:0xabc...".
func NewKey(class, subject string) string {
	return "rl:" + class + ":" + strings.ToLower(subject)
}
