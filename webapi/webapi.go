// Package webapi assembles the HTTP surface of the ledger. Route groups live
// in sub-packages:
// - credits: the caller's wallet
// - conversion: crypto conversions and settlement callbacks
// - rewards: reward events from internal services
// - common: envelopes, problem details and request binding
package webapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/kaushal/skillcredits/docs"
	"github.com/kaushal/skillcredits/pkg/app"
	"github.com/kaushal/skillcredits/webapi/common"
	conversionweb "github.com/kaushal/skillcredits/webapi/conversion"
	creditsweb "github.com/kaushal/skillcredits/webapi/credits"
	rewardsweb "github.com/kaushal/skillcredits/webapi/rewards"
)

// SetupApp builds the fiber app with middleware and every route group.
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		AppName: "skillcredits",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Request failed", err)
		},
	})
	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		PersistAuthorization: true,
	}))

	fiberApp.Use(common.RateLimiter(a.Config.RateLimit))
	fiberApp.Use(recover.New())
	if a.Config.Env != "test" {
		fiberApp.Use(logger.New())
	}

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Skill credits ledger is running")
	})

	creditsweb.Routes(fiberApp, a.LedgerService, a.AuthService, a.Config)
	conversionweb.Routes(fiberApp, a.ConversionService, a.AuthService, a.Config)
	rewardsweb.Routes(fiberApp, a.RewardsService, a.AuthService)
	return fiberApp
}
