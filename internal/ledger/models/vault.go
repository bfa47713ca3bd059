package models

import "github.com/holiman/uint256"

// VaultBalances summarizes value held by the ledger.
type VaultBalances struct {
	// Retained is the sum of all fees; it never decreases.
	Retained uint256.Int
	// Escrowed is the sum of locked amounts not yet paid back.
	Escrowed uint256.Int
	// PaidOut is the total released back to owners.
	PaidOut uint256.Int
}
