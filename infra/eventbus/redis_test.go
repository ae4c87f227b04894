package eventbus_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	infraeventbus "github.com/kaushal/skillcredits/infra/eventbus"
	"github.com/kaushal/skillcredits/pkg/domain/events"
	"github.com/kaushal/skillcredits/pkg/testutils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisBus(t *testing.T) (*infraeventbus.RedisEventBus, string) {
	t.Helper()
	url := testutils.NewRedisURL(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus, err := infraeventbus.NewWithRedis(url, "test:events", "test", nil, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus, url
}

func TestRedisBus_HandlerReceivesEvent(t *testing.T) {
	bus, _ := setupRedisBus(t)

	received := make(chan *events.ConversionRequested, 1)
	bus.Register(events.TypeConversionRequested, func(ctx context.Context, e events.Event) error {
		received <- e.(*events.ConversionRequested)
		return nil
	})
	// Let the consumer group attach before emitting.
	time.Sleep(200 * time.Millisecond)

	want := events.ConversionRequested{
		EventID:       uuid.New(),
		ConversionID:  uuid.New(),
		UserID:        uuid.New(),
		CreditsAmount: 150,
		CryptoType:    "USDT",
		CryptoAmount:  "1.5",
		Rate:          "0.01",
	}
	require.NoError(t, bus.Emit(context.Background(), want))

	select {
	case got := <-received:
		assert.Equal(t, want.ConversionID, got.ConversionID)
		assert.Equal(t, "1.5", got.CryptoAmount)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisBus_FailedHandlerGoesToDLQ(t *testing.T) {
	bus, url := setupRedisBus(t)

	done := make(chan struct{}, 1)
	bus.Register(events.TypeCreditsSpent, func(ctx context.Context, e events.Event) error {
		done <- struct{}{}
		return assert.AnError
	})
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, bus.Emit(context.Background(), events.CreditsSpent{
		EventID: uuid.New(), UserID: uuid.New(), Amount: 10,
	}))
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("handler never ran")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	defer client.Close() //nolint:errcheck

	assert.Eventually(t, func() bool {
		n, err := client.XLen(context.Background(), "test:events-DLQ").Result()
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestNewWithRedis_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := infraeventbus.NewWithRedis("", "s", "g", nil, logger)
	assert.Error(t, err)
	_, err = infraeventbus.NewWithRedis("not a url", "s", "g", nil, logger)
	assert.Error(t, err)
}
