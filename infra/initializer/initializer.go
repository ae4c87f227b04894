package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kaushal/skillcredits/infra"
	"github.com/kaushal/skillcredits/infra/cache"
	"github.com/kaushal/skillcredits/infra/consumer"
	infra_eventbus "github.com/kaushal/skillcredits/infra/eventbus"
	infra_repository "github.com/kaushal/skillcredits/infra/repository"
	"github.com/kaushal/skillcredits/pkg/app"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/kaushal/skillcredits/pkg/eventbus"
	conversionsvc "github.com/kaushal/skillcredits/pkg/service/conversion"
	"github.com/kaushal/skillcredits/pkg/service/rewards"
	"github.com/redis/go-redis/v9"
)

const rateCacheTTL = 30 * time.Second

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (
	deps *app.Deps,
	err error,
) {
	deps = &app.Deps{}
	logger := SetupLogger(cfg.Log)
	deps.Logger = logger

	// Initialize database
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		deps.Closers = append(deps.Closers, sqlDB)
	}

	// Initialize unit of work
	deps.Uow = infra_repository.NewUoW(db)

	// Initialize event bus
	bus, err := initEventBus(cfg, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := bus.(interface{ Close() error }); ok {
		deps.Closers = append(deps.Closers, c)
	}
	deps.EventBus = bus

	// Initialize conversion rates
	rates, err := initRates(cfg, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := rates.(interface{ Close() error }); ok {
		deps.Closers = append(deps.Closers, c)
	}
	deps.Rates = rates

	return deps, nil
}

// initEventBus picks the bus from EVENT_BUS_DRIVER. An unreachable Redis
// falls back to the in-memory bus so the ledger keeps serving.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	driver := ""
	if cfg.EventBus != nil {
		driver = cfg.EventBus.Driver
	}
	switch driver {
	case "", "memory":
		logger.Info("Using in-memory event bus")
		return infra_eventbus.NewWithMemory(logger), nil
	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, errors.New("event bus driver redis requires REDIS_URL")
		}
		opt, err := cache.RedisOptions(cfg.Redis)
		if err != nil {
			return nil, err
		}
		bus, err := infra_eventbus.NewWithRedisOptions(opt, cfg.EventBus.Stream, cfg.EventBus.Group, nil, logger)
		if err != nil {
			logger.Warn("Redis event bus unavailable, falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		logger.Info("Using Redis stream event bus", "stream", cfg.EventBus.Stream)
		return bus, nil
	}
	return nil, fmt.Errorf("unknown event bus driver %q", driver)
}

// initRates builds the rate table from CONVERSION_RATES, with Redis
// overrides when REDIS_URL is set.
func initRates(cfg *config.App, logger *slog.Logger) (conversionsvc.RateProvider, error) {
	raw := ""
	if cfg.Conversion != nil {
		raw = cfg.Conversion.Rates
	}
	base, err := conversion.ParseRateTable(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid CONVERSION_RATES: %w", err)
	}
	if cfg.Redis == nil || cfg.Redis.URL == "" {
		logger.Info("Using static conversion rates", "rates", base.Strings())
		return conversionsvc.NewStaticRates(base), nil
	}
	opt, err := cache.RedisOptions(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis rate store: %w", err)
	}
	store := cache.NewRedisRateStoreWithClient(redis.NewClient(opt), cfg.Redis.KeyPrefix, base, rateCacheTTL, logger)
	logger.Info("Using Redis conversion rate overrides", "prefix", cfg.Redis.KeyPrefix)
	return store, nil
}

// StartRewardConsumer runs the RabbitMQ reward consumer until ctx is done.
// It returns nil without starting anything when RABBIT_URL is empty.
func StartRewardConsumer(
	ctx context.Context,
	cfg *config.App,
	svc *rewards.Service,
	logger *slog.Logger,
) (*consumer.Consumer, error) {
	if cfg.Rabbit == nil || cfg.Rabbit.URL == "" {
		logger.Info("RabbitMQ consumer disabled")
		return nil, nil
	}
	c, err := consumer.New(*cfg.Rabbit, consumer.FromRewards(svc), logger)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := c.Start(ctx); err != nil {
			logger.Error("Reward consumer stopped", "error", err)
		}
	}()
	return c, nil
}
