package models

import (
	"encoding/hex"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	dErrors "nameledger/pkg/domain-errors"
)

// Account identifies a ledger participant by its 20-byte address.
// The zero address is the "no owner" sentinel.
type Account = common.Address

// NameHash is the keccak-256 digest of a name and the Record Store key.
type NameHash = common.Hash

// Timestamp is a point in time in whole seconds since the Unix epoch.
type Timestamp uint64

// MaxTimestamp bounds expiries so they stay representable as signed 64-bit
// integers in storage.
const MaxTimestamp Timestamp = math.MaxInt64

// TimestampOf converts wall-clock time into ledger time, truncating to seconds.
func TimestampOf(t time.Time) Timestamp {
	sec := t.Unix()
	if sec < 0 {
		return 0
	}
	return Timestamp(sec)
}

// Time converts ledger time back to wall-clock time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// Add returns t+seconds, failing when the result passes MaxTimestamp.
func (t Timestamp) Add(seconds uint64) (Timestamp, error) {
	if t > MaxTimestamp || seconds > uint64(MaxTimestamp-t) {
		return 0, dErrors.New(dErrors.CodeValidation, "expiry exceeds the supported time range")
	}
	return t + Timestamp(seconds), nil
}

// HashName returns keccak256 over the raw bytes of name, matching
// solidityKeccak256(['string'], [name]).
func HashName(name string) NameHash {
	return crypto.Keccak256Hash([]byte(name))
}

// ValidateName enforces the name rules before any record is touched.
func ValidateName(name string, maxLength int) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !utf8.ValidString(name) {
		return dErrors.New(dErrors.CodeValidation, "name must be valid UTF-8")
	}
	if maxLength > 0 && len(name) > maxLength {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	return nil
}

// ParseAccount parses a 0x-prefixed hex address. The zero address is rejected
// because it is reserved as the "no owner" sentinel.
func ParseAccount(s string) (Account, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return Account{}, dErrors.New(dErrors.CodeInvalidInput, "invalid account address")
	}
	account := common.HexToAddress(s)
	if account == (Account{}) {
		return Account{}, dErrors.New(dErrors.CodeInvalidInput, "zero address is not a valid account")
	}
	return account, nil
}

// ParseNameHash parses a 0x-prefixed 32-byte hex digest.
func ParseNameHash(s string) (NameHash, error) {
	s = strings.TrimSpace(s)
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*common.HashLength {
		return NameHash{}, dErrors.New(dErrors.CodeInvalidInput, "name hash must be 32 bytes of hex")
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return NameHash{}, dErrors.New(dErrors.CodeInvalidInput, "name hash must be 32 bytes of hex")
	}
	return common.BytesToHash(decoded), nil
}
