package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "nameledger/internal/jwt_token"
	"nameledger/internal/platform/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"serve", "migrate", "token"} {
		assert.Contains(t, out, sub)
	}
}

func TestTokenCommand(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000a11ce")

	t.Run("issues a token the server accepts", func(t *testing.T) {
		out, err := execute(t, "token", "--account", account.Hex())
		require.NoError(t, err)

		jwt := jwttoken.NewJWTService(config.DevSigningKey, "nameledger")
		claims, err := jwt.ValidateToken(strings.TrimSpace(out))
		require.NoError(t, err)
		got, err := claims.Account()
		require.NoError(t, err)
		assert.Equal(t, account, got)
	})

	t.Run("rejects a malformed account", func(t *testing.T) {
		_, err := execute(t, "token", "--account", "alice")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid account")
	})

	t.Run("requires an account", func(t *testing.T) {
		_, err := execute(t, "token")
		require.Error(t, err)
	})
}

func TestLoadConfigHonoursFlags(t *testing.T) {
	root := newRootCmd()
	serveCmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serveCmd.ParseFlags([]string{
		"--log.level", "debug",
		"--server.addr", ":9999",
		"--kafka.brokers", "a:9092,b:9092",
		"--postgres.dsn", "postgres://localhost/ledger",
	}))

	cfg, log, err := loadConfig(serveCmd)
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres://localhost/ledger", cfg.Postgres.DSN)
	assert.Equal(t, "nameledger.audit", cfg.Kafka.Topic, "unset keys keep their defaults")
}
