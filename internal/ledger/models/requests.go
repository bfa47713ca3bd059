package models

import (
	"strings"

	"github.com/holiman/uint256"

	dErrors "nameledger/pkg/domain-errors"
)

// ReserveRequest carries the hash being reserved. The plain name stays
// private until registration.
type ReserveRequest struct {
	Hash string `json:"hash"`
}

// PaymentRequest is the body of register and renew calls.
type PaymentRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// WithdrawRequest names the expired registration to pay out.
type WithdrawRequest struct {
	Name string `json:"name"`
}

// Normalize trims transport whitespace from the value. Names are kept
// verbatim because every byte is hashed.
func (r *PaymentRequest) Normalize() {
	r.Value = strings.TrimSpace(r.Value)
}

// Validate checks required fields and returns the parsed value.
func (r *PaymentRequest) Validate() (*uint256.Int, error) {
	if r.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return ParseAmount(r.Value)
}

// ParseAmount parses a non-negative base-10 integer amount.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "value is required")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "value must be a base-10 integer below 2^256")
	}
	return v, nil
}
