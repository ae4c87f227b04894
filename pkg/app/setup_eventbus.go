// Package app wires the ledger services and the in-process subscribers of
// the domain event bus.
package app

import (
	"context"
	"log/slog"

	"github.com/kaushal/skillcredits/pkg/domain/events"
	"github.com/kaushal/skillcredits/pkg/eventbus"
)

// setupEventBus registers the activity subscribers with the configured bus.
func (a *App) setupEventBus() {
	SetupBus(a.Deps.EventBus, a.Deps.Logger)
}

// SetupBus registers a structured activity line for every ledger event.
// The settlement worker consumes ConversionRequested from the same bus.
func SetupBus(bus eventbus.Bus, logger *slog.Logger) {
	if bus == nil {
		return
	}
	log := logger.With("component", "activity")

	bus.Register(events.TypeCreditsEarned, on(func(ctx context.Context, e *events.CreditsEarned) {
		log.Info("Credits earned",
			"user_id", e.UserID, "amount", e.Amount, "category", e.Category, "balance", e.Balance)
		if e.LevelUp {
			log.Info("Level up", "user_id", e.UserID, "level", e.Level)
		}
	}))
	bus.Register(events.TypeCreditsSpent, on(func(ctx context.Context, e *events.CreditsSpent) {
		log.Info("Credits spent",
			"user_id", e.UserID, "amount", e.Amount, "category", e.Category, "balance", e.Balance)
	}))
	bus.Register(events.TypeConversionRequested, on(func(ctx context.Context, e *events.ConversionRequested) {
		log.Info("Conversion awaiting settlement",
			"conversion_id", e.ConversionID, "user_id", e.UserID,
			"crypto_type", e.CryptoType, "crypto_amount", e.CryptoAmount)
	}))
	bus.Register(events.TypeConversionSettled, on(func(ctx context.Context, e *events.ConversionSettled) {
		log.Info("Conversion settled",
			"conversion_id", e.ConversionID, "user_id", e.UserID, "status", e.Status)
	}))
}

// on adapts a typed handler. The memory bus delivers values and the Redis bus
// delivers pointers, so both are accepted.
func on[T any](fn func(ctx context.Context, e *T)) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		switch v := any(e).(type) {
		case *T:
			fn(ctx, v)
		case T:
			fn(ctx, &v)
		}
		return nil
	}
}
