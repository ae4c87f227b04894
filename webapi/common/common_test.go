package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{account.ErrInsufficientCredits, fiber.StatusBadRequest},
		{account.ErrAccountNotFound, fiber.StatusNotFound},
		{fmt.Errorf("wrapped: %w", account.ErrAccountNotFound), fiber.StatusNotFound},
		{fmt.Errorf("%w: amount", domain.ErrValidation), fiber.StatusBadRequest},
		{conversion.ErrBelowMinimum, fiber.StatusBadRequest},
		{conversion.ErrInvalidAddress, fiber.StatusBadRequest},
		{domain.ErrStoreUnavailable, fiber.StatusServiceUnavailable},
		{conversion.ErrConversionNotFound, fiber.StatusNotFound},
		{conversion.ErrInvalidStatusTransition, fiber.StatusConflict},
		{domain.ErrUnauthorized, fiber.StatusUnauthorized},
		{fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ErrorToStatusCode(tc.err), tc.err.Error())
	}
}

func decodeProblem(t *testing.T, app *fiber.App, method, path, body string) (int, ProblemDetails) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint: errcheck
	var pd ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	return resp.StatusCode, pd
}

func TestProblemDetailsJSON(t *testing.T) {
	app := fiber.New()
	app.Get("/insufficient", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Spend failed", account.ErrInsufficientCredits)
	})
	app.Get("/override", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Bad id", errors.New("parse"), "id must be a UUID", fiber.StatusBadRequest)
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Oops", errors.New("dsn=postgres://secret"))
	})

	status, pd := decodeProblem(t, app, fiber.MethodGet, "/insufficient", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Spend failed", pd.Title)
	assert.Equal(t, "insufficient credits", pd.Detail)
	assert.Equal(t, "/insufficient", pd.Instance)

	status, pd = decodeProblem(t, app, fiber.MethodGet, "/override", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "id must be a UUID", pd.Detail)

	status, pd = decodeProblem(t, app, fiber.MethodGet, "/internal", "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Empty(t, pd.Detail)
}

type spendInput struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Source string `json:"source" validate:"omitempty,max=8"`
}

func TestBindAndValidate(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		input, err := BindAndValidate[spendInput](c)
		if input == nil {
			return err
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "ok", input)
	})

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(`{"amount":5,"source":"shop"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint: errcheck
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "ok", out.Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		status, pd := decodeProblem(t, app, fiber.MethodPost, "/", `{"amount":`)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "Invalid request body", pd.Title)
	})

	t.Run("field errors use json names", func(t *testing.T) {
		status, pd := decodeProblem(t, app, fiber.MethodPost, "/", `{"amount":0,"source":"much-too-long"}`)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "Validation failed", pd.Title)
		fields, ok := pd.Errors.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fields, "amount")
		assert.Contains(t, fields, "source")
	})

	t.Run("empty body is validated", func(t *testing.T) {
		status, _ := decodeProblem(t, app, fiber.MethodPost, "/", "")
		assert.Equal(t, fiber.StatusBadRequest, status)
	})
}

func TestClientKey(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(ClientKey(c)) })

	cases := map[string][2]string{
		"forwarded chain": {"X-Forwarded-For", "1.2.3.4, 10.0.0.1"},
		"real ip":         {"X-Real-IP", "5.6.7.8"},
	}
	want := map[string]string{"forwarded chain": "1.2.3.4", "real ip": "5.6.7.8"}
	for name, h := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set(h[0], h[1])
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, want[name], buf.String(), name)
	}
}
