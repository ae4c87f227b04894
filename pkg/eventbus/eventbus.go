// Package eventbus defines the contract for publishing and consuming domain events.
package eventbus

import (
	"context"

	"github.com/kaushal/skillcredits/pkg/domain/events"
)

// HandlerFunc handles one event.
type HandlerFunc func(ctx context.Context, e events.Event) error

// Bus publishes events to the handlers registered for their type.
type Bus interface {
	Emit(ctx context.Context, e events.Event) error
	Register(eventType string, handler HandlerFunc)
}
