package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/kaushal/skillcredits/infra/initializer"
	"github.com/kaushal/skillcredits/pkg/app"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/webapi"
)

const shutdownTimeout = 10 * time.Second

// @title Skill Credits API
// @version 1.0.0
// @description Credit ledger, earning rules and crypto conversion for the skill exchange
// @host localhost:3000
// @BasePath /
//
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description "Enter your Bearer token in the format: `Bearer {token}`"
//
// @securityDefinitions.apikey InternalKey
// @in header
// @name X-Internal-Key
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, fiberApp, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Deps.Logger.Error("Failed to release resources", "error", err)
		}
	}()
	logger := a.Deps.Logger

	rewardConsumer, err := initializer.StartRewardConsumer(ctx, cfg, a.RewardsService, logger)
	if err != nil {
		return fmt.Errorf("failed to start reward consumer: %w", err)
	}
	if rewardConsumer != nil {
		defer rewardConsumer.Close() //nolint: errcheck
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting server",
		"env", cfg.Env,
		"address", addr,
		"scheme", cfg.Server.Scheme,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- fiberApp.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down")
	if err := fiberApp.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// buildServer wires dependencies, services and routes without listening.
func buildServer(cfg *config.App) (*app.App, *fiber.App, error) {
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	slog.SetDefault(deps.Logger)
	a := app.New(deps, cfg)
	return a, webapi.SetupApp(a), nil
}
