package app

import (
	"io"
	"log/slog"

	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/eventbus"
	"github.com/kaushal/skillcredits/pkg/repository"
	"github.com/kaushal/skillcredits/pkg/service/auth"
	conversionsvc "github.com/kaushal/skillcredits/pkg/service/conversion"
	"github.com/kaushal/skillcredits/pkg/service/ledger"
	"github.com/kaushal/skillcredits/pkg/service/rewards"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Rates    conversionsvc.RateProvider
	Logger   *slog.Logger
	// Closers are released in reverse order by App.Close.
	Closers []io.Closer
}

type App struct {
	Deps              *Deps
	Config            *config.App
	AuthService       *auth.Service
	LedgerService     *ledger.Service
	RewardsService    *rewards.Service
	ConversionService *conversionsvc.Service
}

func New(deps *Deps, cfg *config.App) *App {
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	app.setupEventBus()

	svcDeps := config.Deps{
		Uow:      deps.Uow,
		EventBus: deps.EventBus,
		Logger:   deps.Logger,
		Config:   cfg,
	}
	authMap := map[string]func() *auth.Service{
		"jwt": func() *auth.Service {
			return auth.NewWithJWT(cfg.Auth, deps.Logger)
		},
	}
	authFactory, ok := authMap[cfg.Auth.Strategy]
	if !ok {
		deps.Logger.Warn("Unknown auth strategy, using jwt", "strategy", cfg.Auth.Strategy)
		authFactory = authMap["jwt"]
	}
	app.AuthService = authFactory()
	app.LedgerService = ledger.NewService(svcDeps)
	app.RewardsService = rewards.NewService(app.LedgerService, deps.Logger)
	app.ConversionService = conversionsvc.NewService(svcDeps, app.LedgerService, deps.Rates)
	return app
}

// Close releases the infrastructure opened by the initializer.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.Deps.Closers) - 1; i >= 0; i-- {
		if err := a.Deps.Closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
