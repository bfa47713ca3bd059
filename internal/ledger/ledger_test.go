package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nameledger/internal/ledger/models"
	"nameledger/internal/platform/config"
	dErrors "nameledger/pkg/domain-errors"
)

func TestParamsFromConfig(t *testing.T) {
	t.Run("empty config yields defaults", func(t *testing.T) {
		p, err := ParamsFromConfig(config.LedgerConfig{})
		require.NoError(t, err)
		assert.Equal(t, models.DefaultParams(), p)
	})

	t.Run("amounts beyond 64 bits are accepted", func(t *testing.T) {
		p, err := ParamsFromConfig(config.LedgerConfig{
			LengthFactor:     "1",
			LengthMultiplier: "100000000000000000000000",
			DurationFactor:   "36893488147419103232",
			ReserveDuration:  120,
			MaxNameLength:    32,
		})
		require.NoError(t, err)
		assert.Equal(t, "100000000000000000000000", p.LengthMultiplier.Dec())
		assert.Equal(t, "36893488147419103232", p.DurationFactor.Dec())
		assert.Equal(t, uint64(120), p.ReserveDuration)
		assert.Equal(t, 32, p.MaxNameLength)
	})

	t.Run("malformed amount names the key", func(t *testing.T) {
		_, err := ParamsFromConfig(config.LedgerConfig{DurationFactor: "1e9"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ledger.duration_factor")
	})

	t.Run("fee above the paid value is rejected", func(t *testing.T) {
		_, err := ParamsFromConfig(config.LedgerConfig{
			LengthFactor:     "1000000000000000000",
			LengthMultiplier: "1000000000000000000",
			MaxNameLength:    2,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("zero duration factor is rejected", func(t *testing.T) {
		_, err := ParamsFromConfig(config.LedgerConfig{DurationFactor: "0"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}
