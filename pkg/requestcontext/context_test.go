package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestCaller(t *testing.T) {
	t.Run("missing caller is unauthenticated", func(t *testing.T) {
		_, ok := Caller(context.Background())
		assert.False(t, ok)
	})

	t.Run("zero address is treated as unauthenticated", func(t *testing.T) {
		_, ok := Caller(WithCaller(context.Background(), common.Address{}))
		assert.False(t, ok)
	})

	t.Run("injected caller round trips", func(t *testing.T) {
		alice := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
		got, ok := Caller(WithCaller(context.Background(), alice))
		assert.True(t, ok)
		assert.Equal(t, alice, got)
	})
}

func TestNow(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}
