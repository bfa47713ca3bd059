// Package config loads service configuration from defaults, an optional
// YAML file and NAMELEDGER_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server    Server          `mapstructure:"server"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	JWTSigningKey   string        `mapstructure:"jwt_signing_key"`
	JWTIssuer       string        `mapstructure:"jwt_issuer"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LedgerConfig holds registry parameters. Amounts are base-10 strings
// because they may exceed 64 bits.
type LedgerConfig struct {
	LengthFactor     string `mapstructure:"length_factor"`
	LengthMultiplier string `mapstructure:"length_multiplier"`
	DurationFactor   string `mapstructure:"duration_factor"`
	ReserveDuration  uint64 `mapstructure:"reserve_duration"`
	MaxNameLength    int    `mapstructure:"max_name_length"`
}

// PostgresConfig selects the durable backend. An empty DSN keeps everything
// in memory.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig configures the record read cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// KafkaConfig configures the audit outbox relay. It only runs when brokers
// are set and Postgres is enabled.
type KafkaConfig struct {
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	Partitions    int32         `mapstructure:"partitions"`
	Replication   int16         `mapstructure:"replication"`
	RelayInterval time.Duration `mapstructure:"relay_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Limit    int           `mapstructure:"limit"`
}

// RateLimitConfig bounds ledger transitions per caller. Requests <= 0
// disables limiting. Limits are shared through Redis when it is configured.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DevSigningKey is used when no signing key is configured.
const DevSigningKey = "dev-secret-key-change-in-production"

// Defaults returns the baseline settings keyed by viper path.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":             ":8080",
		"server.jwt_signing_key":  DevSigningKey,
		"server.jwt_issuer":       "nameledger",
		"server.token_ttl":        time.Hour,
		"server.request_timeout":  10 * time.Second,
		"server.shutdown_timeout": 15 * time.Second,

		"ledger.length_factor":     "10000000000000000",
		"ledger.length_multiplier": "1000000000000000000",
		"ledger.duration_factor":   "1000000000",
		"ledger.reserve_duration":  60,
		"ledger.max_name_length":   64,

		"postgres.dsn":               "",
		"postgres.max_open_conns":    20,
		"postgres.max_idle_conns":    5,
		"postgres.conn_max_lifetime": 30 * time.Minute,

		"redis.url":            "",
		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,
		"redis.dial_timeout":   5 * time.Second,
		"redis.read_timeout":   3 * time.Second,
		"redis.write_timeout":  3 * time.Second,
		"redis.cache_ttl":      30 * time.Second,

		"kafka.brokers":        []string{},
		"kafka.topic":          "nameledger.audit",
		"kafka.partitions":     3,
		"kafka.replication":    1,
		"kafka.relay_interval": time.Second,
		"kafka.batch_size":     100,

		"monitor.interval": time.Minute,
		"monitor.limit":    100,

		"ratelimit.requests": 30,
		"ratelimit.window":   time.Minute,

		"log.level":  "info",
		"log.format": "json",
	}
}

// Load builds a Config. configFile may be empty. Flags, when given, override
// every other source for the keys they are bound to.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("nameledger")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/nameledger")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return c, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("nameledger")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return c, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.JWTSigningKey == "" {
		return errors.New("server.jwt_signing_key is required")
	}
	if len(c.Kafka.Brokers) > 0 && c.Postgres.DSN == "" {
		return errors.New("kafka relay requires postgres.dsn")
	}
	if c.Kafka.Topic == "" && len(c.Kafka.Brokers) > 0 {
		return errors.New("kafka.topic is required")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return errors.New("ratelimit.window must be positive")
	}
	return nil
}
