package config

import (
	"log/slog"

	"github.com/kaushal/skillcredits/pkg/eventbus"
	"github.com/kaushal/skillcredits/pkg/repository"
)

// Deps holds the infrastructure dependencies the services are built from.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Logger   *slog.Logger
	Config   *App
}
