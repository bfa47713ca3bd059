package models

import (
	"github.com/holiman/uint256"

	dErrors "nameledger/pkg/domain-errors"
)

// Quote is the split of one payment into a retained fee and an escrowed lock,
// and the registration length the lock buys.
type Quote struct {
	Value    uint256.Int
	Fee      uint256.Int
	Locked   uint256.Int
	Duration uint64
}

// Calculate splits value for a name of nameLength bytes:
//
//	fee      = floor(value * nameLength * lengthFactor / lengthMultiplier)
//	locked   = value - fee
//	duration = floor(locked / durationFactor)
//
// The product is formed at 512-bit precision before the division.
func Calculate(value *uint256.Int, nameLength int, p Params) (Quote, error) {
	if value == nil {
		return Quote{}, dErrors.New(dErrors.CodeValidation, "value is required")
	}
	if nameLength <= 0 {
		return Quote{}, dErrors.New(dErrors.CodeValidation, "name length must be positive")
	}
	if p.LengthMultiplier.IsZero() || p.DurationFactor.IsZero() {
		return Quote{}, dErrors.New(dErrors.CodeInvariantViolation, "registry params are not initialised")
	}

	perName, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(uint64(nameLength)), &p.LengthFactor)
	if overflow {
		return Quote{}, dErrors.New(dErrors.CodeValidation, "fee rate overflows")
	}
	fee, overflow := new(uint256.Int).MulDivOverflow(value, perName, &p.LengthMultiplier)
	if overflow {
		return Quote{}, dErrors.New(dErrors.CodeValidation, "payment too large")
	}
	if fee.Gt(value) {
		return Quote{}, dErrors.New(dErrors.CodeInvariantViolation, "fee exceeds paid value")
	}

	var q Quote
	q.Value.Set(value)
	q.Fee.Set(fee)
	q.Locked.Sub(value, fee)

	duration := new(uint256.Int).Div(&q.Locked, &p.DurationFactor)
	if !duration.IsUint64() {
		return Quote{}, dErrors.New(dErrors.CodeValidation, "payment buys a duration beyond the supported range")
	}
	q.Duration = duration.Uint64()
	return q, nil
}
