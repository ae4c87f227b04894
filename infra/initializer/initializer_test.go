package initializer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/infra/cache"
	infra_eventbus "github.com/kaushal/skillcredits/infra/eventbus"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/kaushal/skillcredits/pkg/domain/events"
	conversionsvc "github.com/kaushal/skillcredits/pkg/service/conversion"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitEventBus_DefaultsToMemory(t *testing.T) {
	cfg := &config.App{
		Redis:    &config.Redis{URL: "redis://localhost:6379/0"},
		EventBus: &config.EventBus{Driver: ""},
	}
	bus, err := initEventBus(cfg, discard())
	require.NoError(t, err)
	require.IsType(t, &infra_eventbus.MemoryEventBus{}, bus)

	for i := 0; i < 100; i++ {
		require.NoError(t, bus.Emit(context.Background(), events.CreditsEarned{UserID: uuid.New(), Amount: 1}))
	}
	assert.Empty(t, bus.(*infra_eventbus.MemoryEventBus).Published())
}

func TestInitEventBus_ExplicitRedisRequiresURL(t *testing.T) {
	cfg := &config.App{
		Redis:    &config.Redis{URL: ""},
		EventBus: &config.EventBus{Driver: "redis"},
	}
	_, err := initEventBus(cfg, discard())
	require.Error(t, err)
}

func TestInitEventBus_RedisConnectionErrorFallsBackToMemory(t *testing.T) {
	cfg := &config.App{
		Redis:    &config.Redis{URL: "redis://127.0.0.1:1"},
		EventBus: &config.EventBus{Driver: "redis", Stream: "s", Group: "g"},
	}
	bus, err := initEventBus(cfg, discard())
	require.NoError(t, err)
	require.IsType(t, &infra_eventbus.MemoryEventBus{}, bus)
}

func TestInitEventBus_UnknownDriver(t *testing.T) {
	_, err := initEventBus(&config.App{EventBus: &config.EventBus{Driver: "kafka"}}, discard())
	require.Error(t, err)
}

func TestInitRates(t *testing.T) {
	rates, err := initRates(&config.App{Conversion: &config.Conversion{Rates: "USDT:0.02"}}, discard())
	require.NoError(t, err)
	require.IsType(t, &conversionsvc.StaticRates{}, rates)
	table, err := rates.Rates(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.02").Equal(table[conversion.USDT]))

	_, err = initRates(&config.App{Conversion: &config.Conversion{Rates: "USDT"}}, discard())
	assert.Error(t, err)

	redisRates, err := initRates(&config.App{
		Redis:      &config.Redis{URL: "redis://127.0.0.1:1/0", KeyPrefix: "t:"},
		Conversion: &config.Conversion{},
	}, discard())
	require.NoError(t, err)
	require.IsType(t, &cache.RedisRateStore{}, redisRates)
}

func TestStartRewardConsumer_DisabledWithoutURL(t *testing.T) {
	c, err := StartRewardConsumer(context.Background(), &config.App{Rabbit: &config.Rabbit{}}, nil, discard())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSetupLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&config.Log{Format: "json", Prefix: "[test]"}, &buf)
	logger.Info("hello", "k", "v")
	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, `"k"`)
	assert.Contains(t, out, "{")
}
