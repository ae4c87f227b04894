// Package credits serves the caller's own wallet: opening it, reading the
// balance, history and stats, and spending on purchases.
package credits

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/middleware"
	authsvc "github.com/kaushal/skillcredits/pkg/service/auth"
	"github.com/kaushal/skillcredits/pkg/service/ledger"
	"github.com/kaushal/skillcredits/webapi/common"
)

// Routes registers the wallet endpoints. All of them require a bearer token.
//
// Routes:
//   - POST /credits/account      : Open the caller's account (idempotent).
//   - GET  /credits/balance      : Balance and level.
//   - GET  /credits/transactions : History, newest first.
//   - GET  /credits/stats        : Earned, spent and weekly totals.
//   - POST /credits/spend        : Debit for a platform purchase.
func Routes(app *fiber.App, ledgerSvc *ledger.Service, authSvc *authsvc.Service, cfg *config.App) {
	group := app.Group("/credits", middleware.JwtProtected(cfg.Auth.Jwt))
	group.Post("/account", OpenAccount(ledgerSvc, authSvc))
	group.Get("/balance", GetBalance(ledgerSvc, authSvc))
	group.Get("/transactions", GetTransactions(ledgerSvc, authSvc))
	group.Get("/stats", GetStats(ledgerSvc, authSvc))
	group.Post("/spend", Spend(ledgerSvc, authSvc))
}

// OpenAccount returns a handler that provisions the caller's account.
// @Summary Open a credit account
// @Description Creates the caller's wallet and grants the signup bonus. Calling it again returns the existing wallet.
// @Tags credits
// @Produce json
// @Success 201 {object} common.Response "Account opened"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 429 {object} common.ProblemDetails "Too many requests"
// @Failure 503 {object} common.ProblemDetails "Ledger store unavailable"
// @Router /credits/account [post]
// @Security Bearer
func OpenAccount(ledgerSvc *ledger.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, authSvc)
		if userID == uuid.Nil {
			return err
		}
		acc, err := ledgerSvc.OpenAccount(c.UserContext(), userID)
		if err != nil {
			log.Errorf("Failed to open account: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to open account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account opened", ToAccountDTO(acc))
	}
}

// GetBalance returns a handler for the caller's balance.
// @Summary Get credit balance
// @Description Returns the caller's credit balance, level and token balance.
// @Tags credits
// @Produce json
// @Success 200 {object} common.Response "Balance fetched"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Account not found"
// @Failure 503 {object} common.ProblemDetails "Ledger store unavailable"
// @Router /credits/balance [get]
// @Security Bearer
func GetBalance(ledgerSvc *ledger.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, authSvc)
		if userID == uuid.Nil {
			return err
		}
		acc, err := ledgerSvc.GetAccount(c.UserContext(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Balance fetched", ToAccountDTO(acc))
	}
}

// GetTransactions returns a handler for the caller's history.
// @Summary List credit transactions
// @Description Returns the caller's transactions, newest first.
// @Tags credits
// @Produce json
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Entries to skip"
// @Success 200 {object} common.Response "Transactions fetched"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Account not found"
// @Router /credits/transactions [get]
// @Security Bearer
func GetTransactions(ledgerSvc *ledger.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, authSvc)
		if userID == uuid.Nil {
			return err
		}
		limit := c.QueryInt("limit", ledger.DefaultHistoryLimit)
		offset := c.QueryInt("offset", 0)
		if limit < 0 || offset < 0 {
			return common.ProblemDetailsJSON(c, "Invalid paging", nil, "limit and offset must not be negative", fiber.StatusBadRequest)
		}
		txs, err := ledgerSvc.GetUserTransactions(c.UserContext(), userID, limit, offset)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		dtos := make([]TransactionDTO, 0, len(txs))
		for _, tx := range txs {
			dtos = append(dtos, ToTransactionDTO(tx))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", TransactionsResponse{
			Transactions: dtos,
			Limit:        effectiveLimit(limit),
			Offset:       offset,
		})
	}
}

// GetStats returns a handler for the caller's earning stats.
// @Summary Get earning stats
// @Description Returns balance, level, lifetime earned and spent, and earnings of the last seven days.
// @Tags credits
// @Produce json
// @Success 200 {object} common.Response "Stats fetched"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Account not found"
// @Router /credits/stats [get]
// @Security Bearer
func GetStats(ledgerSvc *ledger.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, authSvc)
		if userID == uuid.Nil {
			return err
		}
		stats, err := ledgerSvc.GetUserEarningStats(c.UserContext(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get stats", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Stats fetched", stats)
	}
}

// Spend returns a handler that debits the caller for a purchase.
// @Summary Spend credits
// @Description Debits the caller's wallet. An uncovered amount is rejected and nothing is recorded.
// @Tags credits
// @Accept json
// @Produce json
// @Param request body SpendRequest true "Spend details"
// @Success 200 {object} common.Response "Credits spent"
// @Failure 400 {object} common.ProblemDetails "Invalid request or insufficient credits"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Account not found"
// @Router /credits/spend [post]
// @Security Bearer
func Spend(ledgerSvc *ledger.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, authSvc)
		if userID == uuid.Nil {
			return err
		}
		input, err := common.BindAndValidate[SpendRequest](c)
		if input == nil {
			return err
		}
		ok, err := ledgerSvc.Spend(c.UserContext(), ledger.SpendParams{
			UserID:      userID,
			Amount:      input.Amount,
			Source:      input.Source,
			Description: input.Description,
			Metadata:    input.Metadata,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to spend credits", err)
		}
		if !ok {
			return common.ProblemDetailsJSON(c, "Failed to spend credits", account.ErrInsufficientCredits)
		}
		acc, err := ledgerSvc.GetAccount(c.UserContext(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Credits spent", SpendResponse{
			Success: true,
			Balance: acc.CreditBalance,
		})
	}
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return ledger.DefaultHistoryLimit
	}
	return min(limit, ledger.MaxHistoryLimit)
}
