// Package ledger holds the wiring shared by the ledger's entry points.
package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"nameledger/internal/ledger/models"
	"nameledger/internal/platform/config"
)

// ParamsFromConfig converts the configured registry constants into Params.
// Unset fields fall back to DefaultParams.
func ParamsFromConfig(cfg config.LedgerConfig) (models.Params, error) {
	p := models.DefaultParams()

	amounts := []struct {
		key   string
		raw   string
		value *uint256.Int
	}{
		{"ledger.length_factor", cfg.LengthFactor, &p.LengthFactor},
		{"ledger.length_multiplier", cfg.LengthMultiplier, &p.LengthMultiplier},
		{"ledger.duration_factor", cfg.DurationFactor, &p.DurationFactor},
	}
	for _, a := range amounts {
		if a.raw == "" {
			continue
		}
		v, err := uint256.FromDecimal(a.raw)
		if err != nil {
			return models.Params{}, fmt.Errorf("%s: %w", a.key, err)
		}
		a.value.Set(v)
	}
	if cfg.ReserveDuration != 0 {
		p.ReserveDuration = cfg.ReserveDuration
	}
	if cfg.MaxNameLength != 0 {
		p.MaxNameLength = cfg.MaxNameLength
	}

	if err := p.Validate(); err != nil {
		return models.Params{}, fmt.Errorf("ledger params: %w", err)
	}
	return p, nil
}
