package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "nameledger/pkg/domain-errors"
)

func TestHashName(t *testing.T) {
	// keccak256("") is the well-known empty digest.
	assert.Equal(t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		HashName("").Hex())
	assert.Equal(t, HashName("AAA"), HashName("AAA"))
	assert.NotEqual(t, HashName("AAA"), HashName("aaa"))
}

func TestParseNameHash(t *testing.T) {
	h := HashName("AAA")

	parsed, err := ParseNameHash(h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	parsed, err = ParseNameHash(strings.TrimPrefix(h.Hex(), "0x"))
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	for _, bad := range []string{"", "0x1234", "0x" + strings.Repeat("zz", 32)} {
		_, err := ParseNameHash(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), bad)
	}
}

func TestParseAccount(t *testing.T) {
	acct, err := ParseAccount("0x00000000000000000000000000000000000a11ce")
	require.NoError(t, err)
	assert.Equal(t, alice, acct)

	_, err = ParseAccount("0x0000000000000000000000000000000000000000")
	assert.Error(t, err)

	_, err = ParseAccount("alice")
	assert.Error(t, err)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("AAA", 64))
	assert.Error(t, ValidateName("", 64))
	assert.Error(t, ValidateName(strings.Repeat("a", 65), 64))
	assert.Error(t, ValidateName(string([]byte{0xff, 0xfe}), 64))
}

func TestTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 500, time.UTC)
	ts := TimestampOf(now)
	assert.True(t, now.Truncate(time.Second).Equal(ts.Time()))
	assert.Equal(t, Timestamp(0), TimestampOf(time.Unix(-5, 0)))

	later, err := ts.Add(60)
	require.NoError(t, err)
	assert.Equal(t, ts+60, later)

	_, err = (MaxTimestamp - 1).Add(2)
	assert.Error(t, err)
}
