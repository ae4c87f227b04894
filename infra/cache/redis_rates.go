// Package cache keeps shared, mutable configuration in Redis.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/redis/go-redis/v9"
)

const ratesKey = "conversion:rates"

// RedisRateStore overlays rates stored in a Redis hash on a static base table,
// so every instance sees an admin rate change without a redeploy.
// Reads are cached locally for ttl.
type RedisRateStore struct {
	client *redis.Client
	prefix string
	base   conversion.RateTable
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	cached   conversion.RateTable
	cachedAt time.Time
}

// NewRedisRateStore connects to url (redis://host:port/db).
func NewRedisRateStore(
	url, prefix string,
	base conversion.RateTable,
	ttl time.Duration,
	logger *slog.Logger,
) (*RedisRateStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisRateStoreWithClient(redis.NewClient(opt), prefix, base, ttl, logger), nil
}

// NewRedisRateStoreWithClient wraps an existing client.
func NewRedisRateStoreWithClient(
	client *redis.Client,
	prefix string,
	base conversion.RateTable,
	ttl time.Duration,
	logger *slog.Logger,
) *RedisRateStore {
	if base == nil {
		base = conversion.DefaultRates
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRateStore{
		client: client,
		prefix: prefix,
		base:   base.Merge(nil),
		ttl:    ttl,
		logger: logger.With("store", "redis_rates"),
	}
}

func (r *RedisRateStore) key() string {
	return r.prefix + ratesKey
}

// Rates returns the base table with the Redis overrides applied. When Redis
// is unreachable the last known table (or the base table) is served.
func (r *RedisRateStore) Rates(ctx context.Context) (conversion.RateTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil && time.Since(r.cachedAt) < r.ttl {
		return r.cached.Merge(nil), nil
	}

	vals, err := r.client.HGetAll(ctx, r.key()).Result()
	if err != nil {
		r.logger.Warn("Redis rates unavailable, serving last known table", "error", err)
		if r.cached != nil {
			return r.cached.Merge(nil), nil
		}
		return r.base.Merge(nil), nil
	}
	overrides, err := conversion.RatesFromStrings(vals)
	if err != nil {
		r.logger.Error("Ignoring malformed rate overrides", "key", r.key(), "error", err)
		overrides = nil
	}
	r.cached = r.base.Merge(overrides)
	r.cachedAt = time.Now()
	r.logger.Debug("Rates loaded", "overrides", len(vals))
	return r.cached.Merge(nil), nil
}

// SetRates writes overrides for the given tickers.
func (r *RedisRateStore) SetRates(ctx context.Context, rates conversion.RateTable) error {
	if len(rates) == 0 {
		return nil
	}
	fields := make(map[string]any, len(rates))
	for code, rate := range rates.Strings() {
		fields[code] = rate
	}
	if err := r.client.HSet(ctx, r.key(), fields).Err(); err != nil {
		r.logger.Error("Redis rates set error", "error", err)
		return err
	}
	if err := r.client.Set(ctx, r.key()+":updated_at", time.Now().UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		r.logger.Warn("Redis rates timestamp error", "error", err)
	}

	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
	return nil
}

// LastUpdate returns when rates were last changed; zero if never.
func (r *RedisRateStore) LastUpdate(ctx context.Context) (time.Time, error) {
	val, err := r.client.Get(ctx, r.key()+":updated_at").Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, val)
}

// Close closes the client.
func (r *RedisRateStore) Close() error {
	return r.client.Close()
}
