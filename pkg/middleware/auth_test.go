package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/config"
	authsvc "github.com/kaushal/skillcredits/pkg/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var jwtCfg = &config.Jwt{Secret: "secret", Expiry: time.Hour}

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Use(JwtProtected(jwtCfg))
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func sign(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     exp.Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJwtProtected(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", fiber.StatusBadRequest},
		{"valid token", "Bearer " + sign(t, "secret", time.Now().Add(time.Hour)), fiber.StatusOK},
		{"wrong secret", "Bearer " + sign(t, "other", time.Now().Add(time.Hour)), fiber.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, "secret", time.Now().Add(-time.Hour)), fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := protectedApp().Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestJwtError_Malformed(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("Missing or malformed JWT"))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get(fiber.HeaderContentType))
}

func TestJwtError_Invalid(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("any other error"))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestInternalKeyProtected(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("worker-key"), bcrypt.MinCost)
	require.NoError(t, err)

	build := func(hash string) *fiber.App {
		svc := authsvc.New(authsvc.NewJWTStrategy(jwtCfg, slog.Default()), hash, slog.Default())
		app := fiber.New()
		app.Use(InternalKeyProtected(svc))
		app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
		return app
	}

	tests := []struct {
		name string
		hash string
		key  string
		want int
	}{
		{"valid key", string(hash), "worker-key", fiber.StatusOK},
		{"wrong key", string(hash), "nope", fiber.StatusUnauthorized},
		{"missing key", string(hash), "", fiber.StatusUnauthorized},
		{"disabled", "", "worker-key", fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				req.Header.Set(InternalKeyHeader, tt.key)
			}
			resp, err := build(tt.hash).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
