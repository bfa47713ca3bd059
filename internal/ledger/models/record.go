package models

import (
	"github.com/holiman/uint256"
)

// Record is the ledger state of one name hash. A hash that was never reserved
// reads as the zero Record.
type Record struct {
	Hash                  NameHash
	Owner                 Account
	ReserveExpiresAt      Timestamp
	LockedAmount          uint256.Int
	RegistrationExpiresAt Timestamp
}

// EmptyRecord returns the zero state for hash.
func EmptyRecord(hash NameHash) *Record {
	return &Record{Hash: hash}
}

// State is the observable lifecycle phase of a record at a given time.
type State string

const (
	StateFree         State = "free"
	StateReserved     State = "reserved"
	StateRegistered   State = "registered"
	StateWithdrawable State = "withdrawable"
)

// ReservedAt reports whether the reservation still blocks others at now.
func (r *Record) ReservedAt(now Timestamp) bool {
	return r.ReserveExpiresAt > now
}

// RegisteredAt reports whether the registration is active at now.
func (r *Record) RegisteredAt(now Timestamp) bool {
	return r.RegistrationExpiresAt > now
}

// ActiveAt reports whether any account holds a claim on the name at now.
func (r *Record) ActiveAt(now Timestamp) bool {
	return r.ReservedAt(now) || r.RegisteredAt(now)
}

// StateAt classifies the record. Registration wins over reservation because
// a registered name keeps its old, no longer load-bearing reserve expiry.
func (r *Record) StateAt(now Timestamp) State {
	switch {
	case r.RegisteredAt(now):
		return StateRegistered
	case r.ReservedAt(now):
		return StateReserved
	case !r.LockedAmount.IsZero():
		return StateWithdrawable
	default:
		return StateFree
	}
}

// IsOwnedBy reports whether caller is the stored owner. The zero address
// never owns anything.
func (r *Record) IsOwnedBy(caller Account) bool {
	return caller != (Account{}) && r.Owner == caller
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// CheckReserve validates a reservation at now.
func (r *Record) CheckReserve(now Timestamp) error {
	if r.RegisteredAt(now) {
		return ErrNameAlreadyRegistered
	}
	if r.ReservedAt(now) {
		return ErrNameAlreadyReserved
	}
	return nil
}

// Reserve hands the name to caller for reserveDuration seconds and clears
// any registration state. Callers settle a leftover lock before calling.
func (r *Record) Reserve(caller Account, now Timestamp, reserveDuration uint64) error {
	if err := r.CheckReserve(now); err != nil {
		return err
	}
	expiresAt, err := now.Add(reserveDuration)
	if err != nil {
		return err
	}
	r.Owner = caller
	r.ReserveExpiresAt = expiresAt
	r.LockedAmount.Clear()
	r.RegistrationExpiresAt = 0
	return nil
}

// CheckRegister validates a registration at now. An active registration is
// reported before ownership so every account sees NameAlreadyRegistered while
// the name is taken. Keep this order even though ownership is the first rule
// of a registration: the owner's own second register must fail as registered.
func (r *Record) CheckRegister(caller Account, now Timestamp) error {
	if r.RegisteredAt(now) {
		return ErrNameAlreadyRegistered
	}
	if !r.IsOwnedBy(caller) {
		return ErrIncorrectOwner
	}
	return nil
}

// CheckRenew validates a renewal at now. Ownership is checked first so a
// non-owner is refused regardless of expiry.
func (r *Record) CheckRenew(caller Account, now Timestamp) error {
	if !r.IsOwnedBy(caller) {
		return ErrNotOwner
	}
	if !r.RegisteredAt(now) {
		return ErrNameRegistrationExpired
	}
	return nil
}

// CheckWithdraw validates a withdrawal at now.
func (r *Record) CheckWithdraw(caller Account, now Timestamp) error {
	if r.RegisteredAt(now) {
		return ErrNameRegistrationNotExpired
	}
	if !r.IsOwnedBy(caller) {
		return ErrNotOwner
	}
	return nil
}

// Lock replaces the escrowed amount and registration expiry with the ones
// bought by q. The reservation expiry is left untouched.
func (r *Record) Lock(q Quote, now Timestamp) error {
	expiresAt, err := now.Add(q.Duration)
	if err != nil {
		return err
	}
	r.LockedAmount.Set(&q.Locked)
	r.RegistrationExpiresAt = expiresAt
	return nil
}

// Release empties the escrow and returns what it held.
func (r *Record) Release() uint256.Int {
	released := r.LockedAmount
	r.LockedAmount.Clear()
	return released
}
