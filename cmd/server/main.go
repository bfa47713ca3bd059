// Command nameledger runs the name registry ledger service.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	jwttoken "nameledger/internal/jwt_token"
	"nameledger/internal/platform/config"
	"nameledger/internal/platform/logger"
	"nameledger/internal/platform/postgres"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Tests build fresh instances so flag
// state never leaks between runs.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nameledger",
		Short:         "nameledger runs a commit-reveal name registry with escrowed registration funds.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Flag names match config keys so config.Load binds them directly.
	cmd.PersistentFlags().String("config", "", "config file (default ./nameledger.yaml or /etc/nameledger/nameledger.yaml)")
	cmd.PersistentFlags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log.format", "", "log format (json, text)")
	cmd.PersistentFlags().String("postgres.dsn", "", "Postgres DSN; empty keeps state in memory")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newTokenCmd())
	return cmd
}

// loadConfig reads the configuration for cmd, honouring its flags.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format), nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().String("server.addr", "", "listen address")
	cmd.Flags().String("redis.url", "", "Redis URL for the record cache; empty disables it")
	cmd.Flags().StringSlice("kafka.brokers", nil, "Kafka brokers for the audit relay; empty disables it")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := postgres.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.Migrate(cmd.Context(), db, log)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		account string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !common.IsHexAddress(account) {
				return fmt.Errorf("invalid account %q", account)
			}
			if ttl == 0 {
				ttl = cfg.Server.TokenTTL
			}
			jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
			token, err := jwt.GenerateAccessToken(common.HexToAddress(account), ttl)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), token)
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account address (0x-prefixed hex)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default server.token_ttl)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func writeLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
