package models

import "time"

// RecordResponse is the public view of a Record.
type RecordResponse struct {
	Hash                  string    `json:"hash"`
	Owner                 string    `json:"owner"`
	ReserveExpiresAt      uint64    `json:"reserve_expires_at"`
	LockedAmount          string    `json:"locked_amount"`
	RegistrationExpiresAt uint64    `json:"registration_expires_at"`
	State                 State     `json:"state"`
	AsOf                  time.Time `json:"as_of"`
}

// QuoteResponse previews a register or renew payment.
type QuoteResponse struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Fee      string `json:"fee"`
	Locked   string `json:"locked"`
	Duration uint64 `json:"duration"`
}

// WithdrawResponse reports the amount paid back to the owner.
type WithdrawResponse struct {
	Hash  string `json:"hash"`
	Owner string `json:"owner"`
	Paid  string `json:"paid"`
}

// NewRecordResponse renders r as seen at now.
func NewRecordResponse(r *Record, now Timestamp) RecordResponse {
	return RecordResponse{
		Hash:                  r.Hash.Hex(),
		Owner:                 r.Owner.Hex(),
		ReserveExpiresAt:      uint64(r.ReserveExpiresAt),
		LockedAmount:          r.LockedAmount.Dec(),
		RegistrationExpiresAt: uint64(r.RegistrationExpiresAt),
		State:                 r.StateAt(now),
		AsOf:                  now.Time(),
	}
}

// NewQuoteResponse renders q for name.
func NewQuoteResponse(name string, q Quote) QuoteResponse {
	return QuoteResponse{
		Name:     name,
		Value:    q.Value.Dec(),
		Fee:      q.Fee.Dec(),
		Locked:   q.Locked.Dec(),
		Duration: q.Duration,
	}
}

// PaymentResponse is returned by register and renew: the resulting record
// and how the payment was split.
type PaymentResponse struct {
	Record RecordResponse `json:"record"`
	Quote  QuoteResponse  `json:"quote"`
}
