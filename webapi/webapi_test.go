package webapi_test

import (
	"io"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kaushal/skillcredits/webapi/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	srv := testutils.NewTestServer(t)

	resp := srv.Do(fiber.MethodGet, "/", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "running")
}

func TestSwaggerDoc(t *testing.T) {
	srv := testutils.NewTestServer(t)

	resp := srv.Do(fiber.MethodGet, "/swagger/doc.json", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/credits/spend")
}

func TestUnknownRoute(t *testing.T) {
	srv := testutils.NewTestServer(t)

	resp := srv.Do(fiber.MethodGet, "/nope", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	pd := testutils.DecodeProblem(t, resp)
	assert.Equal(t, fiber.StatusNotFound, pd.Status)
}
