package common

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	authsvc "github.com/kaushal/skillcredits/pkg/service/auth"
)

// CurrentUserID reads the caller from the verified token in c.Locals("user").
// On failure it writes a 401 problem and returns uuid.Nil.
func CurrentUserID(c *fiber.Ctx, authSvc *authsvc.Service) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
	}
	userID, err := authSvc.GetCurrentUserId(token)
	if err != nil {
		log.Errorf("Failed to parse user ID from token: %v", err)
		return uuid.Nil, ProblemDetailsJSON(c, "Invalid user ID", err, fiber.StatusUnauthorized)
	}
	return userID, nil
}

// ParamUUID parses the path parameter name, writing a 400 problem on failure.
func ParamUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, ProblemDetailsJSON(c, "Invalid "+name, err, name+" must be a valid UUID", fiber.StatusBadRequest)
	}
	return id, nil
}
