package service

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/ports"
	"nameledger/pkg/platform/sentinel"
)

// Info returns the record stored under hash, or the zero record for a hash
// that was never reserved.
func (s *Service) Info(ctx context.Context, hash models.NameHash) (*models.Record, error) {
	if s.cache == nil {
		return loadRecord(ctx, s.records, hash)
	}

	rec, err := s.cache.Find(ctx, hash)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sentinel.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "record cache read failed", "name_hash", hash.Hex(), "error", err)
	}
	return s.fill(ctx, hash)
}

// fill reads hash and caches it while holding the same per-hash lock as the
// transitions. A transition committing after the read therefore invalidates
// after the save, never before it.
func (s *Service) fill(ctx context.Context, hash models.NameHash) (*models.Record, error) {
	var rec *models.Record
	err := s.tx.RunInTx(ctx, hash, func(ctx context.Context, store ports.RecordStore) error {
		loaded, err := loadRecord(ctx, store, hash)
		if err != nil {
			return err
		}
		if err := s.cache.Save(ctx, loaded); err != nil {
			s.logger.WarnContext(ctx, "record cache write failed", "name_hash", hash.Hex(), "error", err)
		}
		rec = loaded
		return nil
	})
	if err != nil {
		return nil, infraError(err, "failed to load name record")
	}
	return rec, nil
}

// InfoByName hashes name and returns its record.
func (s *Service) InfoByName(ctx context.Context, name string) (*models.Record, error) {
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	return s.Info(ctx, models.HashName(name))
}

// Quote previews what value buys for name without touching state.
func (s *Service) Quote(name string, value *uint256.Int) (models.Quote, error) {
	if err := s.validateName(name); err != nil {
		return models.Quote{}, err
	}
	return s.quote(name, value)
}

// Balances reports vault totals.
func (s *Service) Balances(ctx context.Context) (models.VaultBalances, error) {
	b, err := s.vault.Balances(ctx)
	if err != nil {
		return models.VaultBalances{}, infraError(err, "failed to read vault balances")
	}
	return b, nil
}
