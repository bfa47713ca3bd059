// Package cache holds read-through caches for ledger records.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"nameledger/internal/ledger/models"
	"nameledger/pkg/platform/sentinel"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nameledger_record_cache_lookups_total",
	Help: "Record cache lookups by result",
}, []string{"result"})

const (
	recordKeyPrefix = "ledger:record:"
	defaultTTL      = 30 * time.Second
)

// cachedRecord is the JSON form stored in Redis. Amounts are decimal strings.
type cachedRecord struct {
	Owner                 string `json:"owner"`
	ReserveExpiresAt      uint64 `json:"reserve_expires_at"`
	LockedAmount          string `json:"locked_amount"`
	RegistrationExpiresAt uint64 `json:"registration_expires_at"`
}

// RedisCache caches records under ledger:record:<hash> with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithTTL overrides how long entries live.
func WithTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewRedisCache(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func recordKey(hash models.NameHash) string {
	return recordKeyPrefix + hash.Hex()
}

func (c *RedisCache) Find(ctx context.Context, hash models.NameHash) (*models.Record, error) {
	raw, err := c.client.Get(ctx, recordKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, sentinel.ErrCacheMiss
	}
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read cached record: %w", err)
	}
	var cr cachedRecord
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	locked, err := uint256.FromDecimal(cr.LockedAmount)
	if err != nil {
		return nil, fmt.Errorf("decode cached locked amount: %w", err)
	}
	cacheLookups.WithLabelValues("hit").Inc()
	r := &models.Record{
		Hash:                  hash,
		Owner:                 common.HexToAddress(cr.Owner),
		ReserveExpiresAt:      models.Timestamp(cr.ReserveExpiresAt),
		RegistrationExpiresAt: models.Timestamp(cr.RegistrationExpiresAt),
	}
	r.LockedAmount.Set(locked)
	return r, nil
}

func (c *RedisCache) Save(ctx context.Context, record *models.Record) error {
	raw, err := json.Marshal(cachedRecord{
		Owner:                 record.Owner.Hex(),
		ReserveExpiresAt:      uint64(record.ReserveExpiresAt),
		LockedAmount:          record.LockedAmount.Dec(),
		RegistrationExpiresAt: uint64(record.RegistrationExpiresAt),
	})
	if err != nil {
		return fmt.Errorf("encode cached record: %w", err)
	}
	return c.client.Set(ctx, recordKey(record.Hash), raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, hash models.NameHash) error {
	return c.client.Del(ctx, recordKey(hash)).Err()
}
