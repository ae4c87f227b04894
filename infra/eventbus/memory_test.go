package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain/events"
	"github.com/stretchr/testify/assert"
)

func TestMemoryEventBus_DispatchesByType(t *testing.T) {
	bus := NewWithMemory(slog.New(slog.NewTextHandler(io.Discard, nil)), WithRecording())

	var earned, spent int
	bus.Register(events.TypeCreditsEarned, func(ctx context.Context, e events.Event) error {
		earned++
		return errors.New("handler failure does not stop others")
	})
	bus.Register(events.TypeCreditsEarned, func(ctx context.Context, e events.Event) error {
		earned++
		return nil
	})
	bus.Register(events.TypeCreditsSpent, func(ctx context.Context, e events.Event) error {
		spent++
		return nil
	})

	assert.NoError(t, bus.Emit(context.Background(), events.CreditsEarned{UserID: uuid.New(), Amount: 5}))
	assert.Equal(t, 2, earned)
	assert.Equal(t, 0, spent)
	assert.Len(t, bus.Published(), 1)

	bus.ClearPublished()
	assert.Empty(t, bus.Published())
}

func TestMemoryEventBus_DoesNotRecordByDefault(t *testing.T) {
	bus := NewWithMemory(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var delivered int
	bus.Register(events.TypeCreditsEarned, func(ctx context.Context, e events.Event) error {
		delivered++
		return nil
	})
	for i := 0; i < 500; i++ {
		assert.NoError(t, bus.Emit(context.Background(), events.CreditsEarned{UserID: uuid.New(), Amount: 1}))
	}

	assert.Equal(t, 500, delivered)
	assert.Empty(t, bus.Published())
}
