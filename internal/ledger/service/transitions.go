package service

import (
	"context"

	"github.com/holiman/uint256"

	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/ports"
	audit "nameledger/pkg/platform/audit"
)

// WithdrawResult reports a completed withdrawal.
type WithdrawResult struct {
	Record *models.Record
	Paid   uint256.Int
}

// Reserve claims hash for caller until now+ReserveDuration. A registration
// that is still active wins over an active reservation in the error
// reported. Escrow left behind by a previous owner who never withdrew is
// paid back to them before the record is handed over.
func (s *Service) Reserve(ctx context.Context, hash models.NameHash, caller models.Account, now models.Timestamp) (*models.Record, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var result *models.Record
	err := s.transition(ctx, opReserve, hash, caller, func(ctx context.Context, store ports.RecordStore) error {
		rec, err := loadRecord(ctx, store, hash)
		if err != nil {
			return err
		}
		prevOwner := rec.Owner
		stale := rec.LockedAmount

		if err := rec.Reserve(caller, now, s.params.ReserveDuration); err != nil {
			return reasonError(err)
		}
		if err := s.payout(ctx, audit.EventEscrowSettled, rec, "", prevOwner, &stale, now); err != nil {
			return err
		}
		if err := s.emit(ctx, audit.Event{
			Timestamp: now.Time(),
			Action:    string(audit.EventNameReserved),
			NameHash:  hash.Hex(),
			Actor:     caller.Hex(),
			Owner:     caller.Hex(),
			ExpiresAt: uint64(rec.ReserveExpiresAt),
		}); err != nil {
			return err
		}
		if err := saveRecord(ctx, store, rec); err != nil {
			return err
		}
		result = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Register converts caller's claim on name into a registration paid for by
// value. The fee is retained; the rest is locked and buys the duration.
func (s *Service) Register(ctx context.Context, name string, caller models.Account, now models.Timestamp, value *uint256.Int) (*models.Record, models.Quote, error) {
	if err := requireCaller(caller); err != nil {
		return nil, models.Quote{}, err
	}
	if err := s.validateName(name); err != nil {
		return nil, models.Quote{}, err
	}
	hash := models.HashName(name)

	var (
		result *models.Record
		q      models.Quote
	)
	err := s.transition(ctx, opRegister, hash, caller, func(ctx context.Context, store ports.RecordStore) error {
		rec, err := loadRecord(ctx, store, hash)
		if err != nil {
			return err
		}
		if err := rec.CheckRegister(caller, now); err != nil {
			return reasonError(err)
		}
		if q, err = s.quote(name, value); err != nil {
			return err
		}
		leftover := rec.LockedAmount
		if err := rec.Lock(q, now); err != nil {
			return err
		}
		if err := s.payout(ctx, audit.EventEscrowSettled, rec, name, rec.Owner, &leftover, now); err != nil {
			return err
		}
		if err := s.collect(ctx, caller, q); err != nil {
			return err
		}
		if err := s.emit(ctx, audit.Event{
			Timestamp: now.Time(),
			Action:    string(audit.EventNameRegistered),
			NameHash:  hash.Hex(),
			Name:      name,
			Actor:     caller.Hex(),
			Owner:     rec.Owner.Hex(),
			Amount:    q.Locked.Dec(),
			ExpiresAt: uint64(rec.RegistrationExpiresAt),
		}); err != nil {
			return err
		}
		if err := saveRecord(ctx, store, rec); err != nil {
			return err
		}
		result = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, models.Quote{}, err
	}
	return result, q, nil
}

// Renew replaces an active registration's lock and expiry with those bought
// by value alone. The previous lock is refunded to the owner first.
func (s *Service) Renew(ctx context.Context, name string, caller models.Account, now models.Timestamp, value *uint256.Int) (*models.Record, models.Quote, error) {
	if err := requireCaller(caller); err != nil {
		return nil, models.Quote{}, err
	}
	if err := s.validateName(name); err != nil {
		return nil, models.Quote{}, err
	}
	hash := models.HashName(name)

	var (
		result *models.Record
		q      models.Quote
	)
	err := s.transition(ctx, opRenew, hash, caller, func(ctx context.Context, store ports.RecordStore) error {
		rec, err := loadRecord(ctx, store, hash)
		if err != nil {
			return err
		}
		if err := rec.CheckRenew(caller, now); err != nil {
			return reasonError(err)
		}
		if q, err = s.quote(name, value); err != nil {
			return err
		}
		previous := rec.LockedAmount
		if err := rec.Lock(q, now); err != nil {
			return err
		}
		if err := s.payout(ctx, audit.EventEscrowSettled, rec, name, rec.Owner, &previous, now); err != nil {
			return err
		}
		if err := s.collect(ctx, caller, q); err != nil {
			return err
		}
		if err := s.emit(ctx, audit.Event{
			Timestamp: now.Time(),
			Action:    string(audit.EventNameRenewed),
			NameHash:  hash.Hex(),
			Name:      name,
			Actor:     caller.Hex(),
			Owner:     rec.Owner.Hex(),
			Amount:    q.Locked.Dec(),
			ExpiresAt: uint64(rec.RegistrationExpiresAt),
		}); err != nil {
			return err
		}
		if err := saveRecord(ctx, store, rec); err != nil {
			return err
		}
		result = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, models.Quote{}, err
	}
	return result, q, nil
}

// Withdraw pays the escrow of an expired registration back to its owner.
// Only the owner may trigger it.
func (s *Service) Withdraw(ctx context.Context, name string, caller models.Account, now models.Timestamp) (*WithdrawResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	hash := models.HashName(name)

	var result *WithdrawResult
	err := s.transition(ctx, opWithdraw, hash, caller, func(ctx context.Context, store ports.RecordStore) error {
		rec, err := loadRecord(ctx, store, hash)
		if err != nil {
			return err
		}
		if err := rec.CheckWithdraw(caller, now); err != nil {
			return reasonError(err)
		}
		paid := rec.Release()
		if !paid.IsZero() {
			if err := s.vault.Release(ctx, rec.Owner, &paid); err != nil {
				return infraError(err, "escrow payout failed")
			}
		}
		if err := s.emit(ctx, audit.Event{
			Timestamp: now.Time(),
			Action:    string(audit.EventNameWithdrawn),
			NameHash:  hash.Hex(),
			Name:      name,
			Actor:     caller.Hex(),
			Owner:     rec.Owner.Hex(),
			Amount:    paid.Dec(),
		}); err != nil {
			return err
		}
		if err := saveRecord(ctx, store, rec); err != nil {
			return err
		}
		result = &WithdrawResult{Record: rec.Clone(), Paid: paid}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) collect(ctx context.Context, from models.Account, q models.Quote) error {
	if err := s.vault.Collect(ctx, from, &q.Fee, &q.Locked); err != nil {
		return infraError(err, "failed to collect payment")
	}
	return nil
}
