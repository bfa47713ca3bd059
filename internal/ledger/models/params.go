package models

import (
	"github.com/holiman/uint256"

	dErrors "nameledger/pkg/domain-errors"
)

// DefaultMaxNameLength caps name length in bytes.
const DefaultMaxNameLength = 64

// Params are the deployment-time constants of a registry.
type Params struct {
	// LengthFactor / LengthMultiplier is the fee fraction charged per name byte.
	LengthFactor     uint256.Int
	LengthMultiplier uint256.Int
	// DurationFactor is the locked amount that buys one second of registration.
	DurationFactor uint256.Int
	// ReserveDuration is how long, in seconds, a reservation blocks others.
	ReserveDuration uint64
	MaxNameLength   int
}

// DefaultParams charges 1% per name byte, locks 1 gwei per second and holds
// reservations for 60 seconds.
func DefaultParams() Params {
	return Params{
		LengthFactor:     *uint256.NewInt(10_000_000_000_000_000),
		LengthMultiplier: *uint256.NewInt(1_000_000_000_000_000_000),
		DurationFactor:   *uint256.NewInt(1_000_000_000),
		ReserveDuration:  60,
		MaxNameLength:    DefaultMaxNameLength,
	}
}

// Validate checks the params can never produce a fee above the paid value.
func (p Params) Validate() error {
	if p.LengthMultiplier.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "length multiplier must be positive")
	}
	if p.DurationFactor.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "duration factor must be positive")
	}
	if p.ReserveDuration == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "reserve duration must be positive")
	}
	if p.MaxNameLength <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "max name length must be positive")
	}
	worst, overflow := new(uint256.Int).MulOverflow(&p.LengthFactor, uint256.NewInt(uint64(p.MaxNameLength)))
	if overflow || worst.Gt(&p.LengthMultiplier) {
		return dErrors.New(dErrors.CodeInvariantViolation, "length factor allows fees above the paid value")
	}
	return nil
}
