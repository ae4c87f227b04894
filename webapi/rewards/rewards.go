// Package rewards accepts reward events from internal platform services over HTTP.
// The same envelopes also arrive through the message queue consumer.
package rewards

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/kaushal/skillcredits/pkg/middleware"
	authsvc "github.com/kaushal/skillcredits/pkg/service/auth"
	"github.com/kaushal/skillcredits/pkg/service/ledger"
	rewardsvc "github.com/kaushal/skillcredits/pkg/service/rewards"
	"github.com/kaushal/skillcredits/webapi/common"
)

//revive:disable

// AwardDTO is the outcome of one award of an event.
type AwardDTO struct {
	TransactionID string `json:"transaction_id,omitempty"`
	Category      string `json:"category,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Balance       int64  `json:"balance"`
	Level         int    `json:"level"`
	LevelUp       bool   `json:"level_up"`
	Duplicate     bool   `json:"duplicate"`
}

// Routes registers POST /internal/rewards/events.
func Routes(app *fiber.App, svc *rewardsvc.Service, authSvc *authsvc.Service) {
	app.Post("/internal/rewards/events", middleware.InternalKeyProtected(authSvc), HandleEvent(svc))
}

// HandleEvent returns a handler that applies the earning rules to one event.
// @Summary Submit a reward event
// @Description Applies the earning rule of the event type. Replaying an event returns the original awards with duplicate set.
// @Tags internal
// @Accept json
// @Produce json
// @Param request body rewards.Envelope true "Reward event envelope"
// @Success 200 {object} common.Response "Event processed"
// @Failure 400 {object} common.ProblemDetails "Invalid or unknown event"
// @Failure 401 {object} common.ProblemDetails "Invalid internal key"
// @Failure 404 {object} common.ProblemDetails "Account not found"
// @Router /internal/rewards/events [post]
// @Security InternalKey
func HandleEvent(svc *rewardsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[rewardsvc.Envelope](c)
		if input == nil {
			return err
		}
		results, err := svc.Handle(c.UserContext(), *input)
		if err != nil {
			log.Warnf("Reward event %q failed: %v", input.Type, err)
			return common.ProblemDetailsJSON(c, "Failed to process reward event", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Event processed", toAwardDTOs(results))
	}
}

func toAwardDTOs(results []*ledger.EarnResult) []AwardDTO {
	out := make([]AwardDTO, 0, len(results))
	for _, r := range results {
		dto := AwardDTO{
			Balance:   r.Balance,
			Level:     r.Level,
			LevelUp:   r.LevelUp,
			Duplicate: r.Duplicate,
		}
		if r.Transaction != nil {
			dto.TransactionID = r.Transaction.ID.String()
			dto.Category = string(r.Transaction.Category)
			dto.Amount = r.Transaction.Amount
		}
		out = append(out, dto)
	}
	return out
}
