package cache

import (
	"fmt"

	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/redis/go-redis/v9"
)

// RedisOptions parses cfg.URL and applies the pool and timeout settings.
// Zero values keep the go-redis defaults.
func RedisOptions(cfg *config.Redis) (*redis.Options, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
	return opt, nil
}
