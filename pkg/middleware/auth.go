// Package middleware holds the fiber authentication guards.
package middleware

import (
	"errors"
	"strings"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/kaushal/skillcredits/pkg/config"
	authsvc "github.com/kaushal/skillcredits/pkg/service/auth"
)

// InternalKeyHeader carries the shared key of internal callers.
const InternalKeyHeader = "X-Internal-Key"

// JwtProtected verifies HS256 bearer tokens and stores the token in c.Locals("user").
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	secret := ""
	if cfg != nil {
		secret = cfg.Secret
	}
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(secret)},
		ContextKey:   "user",
		ErrorHandler: jwtError,
	})
}

// InternalKeyProtected admits requests whose X-Internal-Key matches the configured hash.
func InternalKeyProtected(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authSvc.InternalEnabled() {
			return problem(c, fiber.StatusForbidden, "Forbidden", "internal routes are disabled")
		}
		if !authSvc.CheckInternalKey(c.Get(InternalKeyHeader)) {
			return problem(c, fiber.StatusUnauthorized, "Unauthorized", "invalid internal key")
		}
		return c.Next()
	}
}

func jwtError(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) ||
		strings.EqualFold(err.Error(), "missing or malformed JWT") {
		return problem(c, fiber.StatusBadRequest, "Bad Request", "missing or malformed JWT")
	}
	return problem(c, fiber.StatusUnauthorized, "Unauthorized", "invalid or expired JWT")
}

func problem(c *fiber.Ctx, status int, title, detail string) error {
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   detail,
		"instance": c.OriginalURL(),
	})
}
