package models

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "nameledger/pkg/domain-errors"
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func TestCalculate(t *testing.T) {
	params := DefaultParams()

	t.Run("one ether for a three byte name", func(t *testing.T) {
		q, err := Calculate(ether(1), len("AAA"), params)
		require.NoError(t, err)

		assert.Equal(t, "30000000000000000", q.Fee.Dec())
		assert.Equal(t, "970000000000000000", q.Locked.Dec())
		assert.Equal(t, uint64(970_000_000), q.Duration)
		assert.Equal(t, ether(1).Dec(), q.Value.Dec())
	})

	t.Run("division truncates toward zero", func(t *testing.T) {
		// 199 * 3 * 1e16 / 1e18 = 5.97 -> 5
		q, err := Calculate(uint256.NewInt(199), 3, params)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), q.Fee.Uint64())
		assert.Equal(t, uint64(194), q.Locked.Uint64())
		assert.Equal(t, uint64(0), q.Duration)
	})

	t.Run("zero value yields zero everything", func(t *testing.T) {
		q, err := Calculate(new(uint256.Int), 5, params)
		require.NoError(t, err)
		assert.True(t, q.Fee.IsZero())
		assert.True(t, q.Locked.IsZero())
		assert.Zero(t, q.Duration)
	})

	t.Run("maximum value does not overflow the intermediate product", func(t *testing.T) {
		max := new(uint256.Int).SetAllOne()
		p := params
		p.DurationFactor = *max
		q, err := Calculate(max, p.MaxNameLength, p)
		require.NoError(t, err)
		assert.False(t, q.Fee.Gt(max))

		sum := new(uint256.Int).Add(&q.Fee, &q.Locked)
		assert.True(t, sum.Eq(max))
	})

	t.Run("fee never exceeds value for the longest allowed name", func(t *testing.T) {
		value := uint256.NewInt(1_000_003)
		q, err := Calculate(value, params.MaxNameLength, params)
		require.NoError(t, err)
		assert.True(t, q.Fee.Lt(value) || q.Fee.Eq(value))
	})

	t.Run("duration beyond uint64 is rejected", func(t *testing.T) {
		p := params
		p.DurationFactor = *uint256.NewInt(1)
		_, err := Calculate(new(uint256.Int).SetAllOne(), 1, p)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("nil value is rejected", func(t *testing.T) {
		_, err := Calculate(nil, 3, params)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("uninitialised params are rejected", func(t *testing.T) {
		_, err := Calculate(ether(1), 3, Params{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestParamsValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultParams().Validate())
	})

	t.Run("rate that could charge more than the value is rejected", func(t *testing.T) {
		p := DefaultParams()
		p.LengthFactor = *uint256.NewInt(1_000_000_000_000_000_000) // 100% per byte
		err := p.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "length factor")
	})

	t.Run("zero duration factor is rejected", func(t *testing.T) {
		p := DefaultParams()
		p.DurationFactor = uint256.Int{}
		assert.Error(t, p.Validate())
	})

	t.Run("zero reserve duration is rejected", func(t *testing.T) {
		p := DefaultParams()
		p.ReserveDuration = 0
		assert.Error(t, p.Validate())
	})
}
