package models

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

const start Timestamp = 1_700_000_000

func registeredRecord(t *testing.T) *Record {
	t.Helper()
	r := EmptyRecord(HashName("AAA"))
	require.NoError(t, r.Reserve(alice, start, 60))
	q, err := Calculate(ether(1), 3, DefaultParams())
	require.NoError(t, err)
	require.NoError(t, r.Lock(q, start+1))
	return r
}

func TestReserve(t *testing.T) {
	t.Run("fresh hash is reserved for the caller", func(t *testing.T) {
		r := EmptyRecord(HashName("AAA"))
		require.NoError(t, r.Reserve(alice, start, 60))

		assert.Equal(t, alice, r.Owner)
		assert.Equal(t, start+60, r.ReserveExpiresAt)
		assert.True(t, r.LockedAmount.IsZero())
		assert.Zero(t, r.RegistrationExpiresAt)
		assert.Equal(t, StateReserved, r.StateAt(start))
	})

	t.Run("active reservation blocks everyone", func(t *testing.T) {
		r := EmptyRecord(HashName("AAA"))
		require.NoError(t, r.Reserve(alice, start, 60))

		assert.ErrorIs(t, r.Reserve(bob, start+59, 60), ErrNameAlreadyReserved)
		assert.ErrorIs(t, r.Reserve(alice, start+59, 60), ErrNameAlreadyReserved)
		assert.Equal(t, alice, r.Owner)
	})

	t.Run("lapsed reservation can be taken over", func(t *testing.T) {
		r := EmptyRecord(HashName("AAA"))
		require.NoError(t, r.Reserve(alice, start, 60))

		require.NoError(t, r.Reserve(bob, start+60, 60))
		assert.Equal(t, bob, r.Owner)
		assert.Equal(t, start+120, r.ReserveExpiresAt)
	})

	t.Run("active registration is reported before reservation", func(t *testing.T) {
		r := registeredRecord(t)
		assert.ErrorIs(t, r.CheckReserve(start+10), ErrNameAlreadyRegistered)
	})

	t.Run("failed reservation leaves the record untouched", func(t *testing.T) {
		r := registeredRecord(t)
		before := *r
		assert.Error(t, r.Reserve(bob, start+10, 60))
		assert.Equal(t, before, *r)
	})
}

func TestCheckRegister(t *testing.T) {
	t.Run("never reserved hash has no owner", func(t *testing.T) {
		r := EmptyRecord(HashName("AAAAAAA"))
		assert.ErrorIs(t, r.CheckRegister(bob, start), ErrIncorrectOwner)
	})

	t.Run("zero address never matches the sentinel owner", func(t *testing.T) {
		r := EmptyRecord(HashName("AAA"))
		assert.ErrorIs(t, r.CheckRegister(common.Address{}, start), ErrIncorrectOwner)
	})

	t.Run("active registration refuses owner and strangers alike", func(t *testing.T) {
		r := registeredRecord(t)
		assert.ErrorIs(t, r.CheckRegister(alice, start+10), ErrNameAlreadyRegistered)
		assert.ErrorIs(t, r.CheckRegister(bob, start+10), ErrNameAlreadyRegistered)
	})

	t.Run("owner may register after the reservation lapsed", func(t *testing.T) {
		r := EmptyRecord(HashName("AAA"))
		require.NoError(t, r.Reserve(alice, start, 60))
		assert.NoError(t, r.CheckRegister(alice, start+600))
	})
}

func TestLock(t *testing.T) {
	r := registeredRecord(t)

	assert.Equal(t, "970000000000000000", r.LockedAmount.Dec())
	assert.Equal(t, start+1+970_000_000, r.RegistrationExpiresAt)
	assert.Equal(t, start+60, r.ReserveExpiresAt, "reserve expiry is left as-is")
	assert.Equal(t, StateRegistered, r.StateAt(start+1))

	t.Run("expiry overflow is rejected", func(t *testing.T) {
		c := r.Clone()
		err := c.Lock(Quote{Duration: uint64(MaxTimestamp)}, start)
		assert.Error(t, err)
		assert.Equal(t, r.RegistrationExpiresAt, c.RegistrationExpiresAt)
	})
}

func TestCheckRenew(t *testing.T) {
	r := registeredRecord(t)
	expired := r.RegistrationExpiresAt

	assert.NoError(t, r.CheckRenew(alice, start+10))
	assert.ErrorIs(t, r.CheckRenew(bob, start+10), ErrNotOwner)
	assert.ErrorIs(t, r.CheckRenew(bob, expired), ErrNotOwner, "ownership is checked regardless of expiry")
	assert.ErrorIs(t, r.CheckRenew(alice, expired), ErrNameRegistrationExpired)
}

func TestWithdrawFlow(t *testing.T) {
	r := registeredRecord(t)
	expired := r.RegistrationExpiresAt

	assert.ErrorIs(t, r.CheckWithdraw(alice, expired-1), ErrNameRegistrationNotExpired)
	assert.ErrorIs(t, r.CheckWithdraw(bob, expired-1), ErrNameRegistrationNotExpired)
	assert.ErrorIs(t, r.CheckWithdraw(bob, expired), ErrNotOwner)
	require.NoError(t, r.CheckWithdraw(alice, expired))
	assert.Equal(t, StateWithdrawable, r.StateAt(expired))

	released := r.Release()
	assert.Equal(t, "970000000000000000", released.Dec())
	assert.True(t, r.LockedAmount.IsZero())
	assert.Equal(t, StateFree, r.StateAt(expired))

	require.NoError(t, r.Reserve(bob, expired, 60))
	assert.Equal(t, bob, r.Owner)
}

func TestReasons(t *testing.T) {
	seen := map[string]bool{}
	for _, reason := range Reasons() {
		assert.True(t, reason.IsValid())
		assert.False(t, seen[reason.String()], "duplicate slug %s", reason)
		seen[reason.String()] = true

		parsed, ok := ParseReason(reason.String())
		assert.True(t, ok)
		assert.Equal(t, reason, parsed)
	}
	assert.Len(t, seen, 6)

	assert.False(t, Reason(0).IsValid())
	assert.Equal(t, "Name already reserved", ErrNameAlreadyReserved.Error())

	var err error = ErrNotOwner
	var reason Reason
	require.True(t, errors.As(err, &reason))
	assert.True(t, reason.IsAuthorization())
	assert.False(t, ErrNameAlreadyRegistered.IsAuthorization())
}

func TestClone(t *testing.T) {
	r := registeredRecord(t)
	c := r.Clone()
	c.LockedAmount.Add(&c.LockedAmount, uint256.NewInt(1))
	assert.NotEqual(t, r.LockedAmount, c.LockedAmount)
}
