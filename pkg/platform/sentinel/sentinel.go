package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, vaults and caches return
// these (optionally wrapped) so the ledger service can translate them into
// coded domain errors.
//
//   - ErrNotFound: no record stored under the key
//   - ErrUnavailable: backing service temporarily unreachable
//   - ErrInsufficientFunds: a vault release exceeds the escrowed balance
//   - ErrCacheMiss: read cache holds no fresh entry
var (
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("unavailable")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCacheMiss         = errors.New("cache miss")
)
