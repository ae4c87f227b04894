// Package conversion serves credits-to-crypto conversions: quotes and requests
// for users, and the settlement callbacks used by the payout worker.
package conversion

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/kaushal/skillcredits/pkg/middleware"
	authsvc "github.com/kaushal/skillcredits/pkg/service/auth"
	conversionsvc "github.com/kaushal/skillcredits/pkg/service/conversion"
	"github.com/kaushal/skillcredits/webapi/common"
)

// Routes registers the user conversion endpoints (bearer token) and the
// internal settlement endpoints (X-Internal-Key).
func Routes(app *fiber.App, svc *conversionsvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	user := app.Group("/conversions", middleware.JwtProtected(cfg.Auth.Jwt))
	user.Get("/rates", GetRates(svc))
	user.Post("/", RequestConversion(svc, authSvc))
	user.Get("/:id", GetConversion(svc, authSvc))

	internal := app.Group("/internal/conversions", middleware.InternalKeyProtected(authSvc))
	internal.Get("/", ListConversions(svc))
	internal.Put("/rates", UpdateRates(svc))
	internal.Post("/:id/confirm", ConfirmConversion(svc))
	internal.Post("/:id/fail", FailConversion(svc))
}

// GetRates returns a handler listing the current conversion rates.
// @Summary Get conversion rates
// @Description Returns how much of each supported crypto one credit buys, and the minimum convertible amount.
// @Tags conversions
// @Produce json
// @Success 200 {object} common.Response "Rates fetched"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Router /conversions/rates [get]
// @Security Bearer
func GetRates(svc *conversionsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rates, err := svc.Rates(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get rates", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rates fetched", RatesResponse{
			Rates:      rates.Strings(),
			MinCredits: svc.MinCredits(),
		})
	}
}

// RequestConversion returns a handler that converts the caller's credits.
// @Summary Request a crypto conversion
// @Description Debits the credits and records a pending conversion at the current rate.
// @Tags conversions
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Conversion details"
// @Success 201 {object} common.Response "Conversion requested"
// @Failure 400 {object} common.ProblemDetails "Below minimum, unsupported currency, invalid address or insufficient credits"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Account not found"
// @Router /conversions [post]
// @Security Bearer
func RequestConversion(svc *conversionsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, authSvc)
		if userID == uuid.Nil {
			return err
		}
		input, err := common.BindAndValidate[CreateRequest](c)
		if input == nil {
			return err
		}
		req, err := svc.RequestConversion(c.UserContext(), userID, input.CreditsAmount, input.CryptoType, input.WalletAddress)
		if err != nil {
			log.Warnf("Conversion rejected for %s: %v", userID, err)
			return common.ProblemDetailsJSON(c, "Failed to request conversion", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Conversion requested", ToRequestDTO(req))
	}
}

// GetConversion returns a handler for one of the caller's conversions.
// @Summary Get conversion status
// @Tags conversions
// @Produce json
// @Param id path string true "Conversion ID"
// @Success 200 {object} common.Response "Conversion fetched"
// @Failure 400 {object} common.ProblemDetails "Invalid id"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Conversion not found"
// @Router /conversions/{id} [get]
// @Security Bearer
func GetConversion(svc *conversionsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, authSvc)
		if userID == uuid.Nil {
			return err
		}
		id, err := common.ParamUUID(c, "id")
		if id == uuid.Nil {
			return err
		}
		req, err := svc.GetConversionStatus(c.UserContext(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get conversion", err)
		}
		// other users' requests are reported as missing
		if req.UserID != userID {
			return common.ProblemDetailsJSON(c, "Failed to get conversion", conversion.ErrConversionNotFound)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Conversion fetched", ToRequestDTO(req))
	}
}

// ListConversions returns a handler listing pending conversions, oldest first.
// @Summary List pending conversions
// @Tags internal
// @Produce json
// @Param status query string false "Only pending is supported"
// @Param limit query int false "Page size (default 50, max 500)"
// @Success 200 {object} common.Response "Conversions fetched"
// @Failure 400 {object} common.ProblemDetails "Unsupported status"
// @Failure 401 {object} common.ProblemDetails "Invalid internal key"
// @Router /internal/conversions [get]
// @Security InternalKey
func ListConversions(svc *conversionsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := c.Query("status", string(conversion.StatusPending))
		if conversion.Status(status) != conversion.StatusPending {
			return common.ProblemDetailsJSON(c, "Unsupported status", nil, "only pending conversions can be listed", fiber.StatusBadRequest)
		}
		reqs, err := svc.ListPending(c.UserContext(), c.QueryInt("limit", conversionsvc.DefaultPendingLimit))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list conversions", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Conversions fetched", toRequestDTOs(reqs))
	}
}

// ConfirmConversion returns a handler recording a successful payout.
// @Summary Confirm a conversion
// @Tags internal
// @Accept json
// @Produce json
// @Param id path string true "Conversion ID"
// @Param request body ConfirmRequest true "On-chain transaction"
// @Success 200 {object} common.Response "Conversion confirmed"
// @Failure 404 {object} common.ProblemDetails "Conversion not found"
// @Failure 409 {object} common.ProblemDetails "Conversion already settled"
// @Router /internal/conversions/{id}/confirm [post]
// @Security InternalKey
func ConfirmConversion(svc *conversionsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParamUUID(c, "id")
		if id == uuid.Nil {
			return err
		}
		input, err := common.BindAndValidate[ConfirmRequest](c)
		if input == nil {
			return err
		}
		req, err := svc.ConfirmConversion(c.UserContext(), id, input.TxHash)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to confirm conversion", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Conversion confirmed", ToRequestDTO(req))
	}
}

// FailConversion returns a handler recording a failed payout and refunding the credits.
// @Summary Fail a conversion
// @Tags internal
// @Accept json
// @Produce json
// @Param id path string true "Conversion ID"
// @Param request body FailRequest false "Failure reason"
// @Success 200 {object} common.Response "Conversion failed and refunded"
// @Failure 404 {object} common.ProblemDetails "Conversion not found"
// @Failure 409 {object} common.ProblemDetails "Conversion already confirmed"
// @Router /internal/conversions/{id}/fail [post]
// @Security InternalKey
func FailConversion(svc *conversionsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.ParamUUID(c, "id")
		if id == uuid.Nil {
			return err
		}
		input, err := common.BindAndValidate[FailRequest](c)
		if input == nil {
			return err
		}
		req, err := svc.FailConversion(c.UserContext(), id, input.Reason)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fail conversion", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Conversion failed and refunded", ToRequestDTO(req))
	}
}

// UpdateRates returns a handler that overrides conversion rates.
// @Summary Update conversion rates
// @Tags internal
// @Accept json
// @Produce json
// @Param request body UpdateRatesRequest true "Ticker to decimal rate"
// @Success 200 {object} common.Response "Rates updated"
// @Failure 400 {object} common.ProblemDetails "Invalid rate"
// @Router /internal/conversions/rates [put]
// @Security InternalKey
func UpdateRates(svc *conversionsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[UpdateRatesRequest](c)
		if input == nil {
			return err
		}
		rates, err := svc.UpdateRates(c.UserContext(), input.Rates)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to update rates", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Rates updated", RatesResponse{
			Rates:      rates.Strings(),
			MinCredits: svc.MinCredits(),
		})
	}
}
