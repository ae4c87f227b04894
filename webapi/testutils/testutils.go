// Package testutils builds a fully wired HTTP app on an in-memory SQLite
// ledger for route tests.
package testutils

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	infraeventbus "github.com/kaushal/skillcredits/infra/eventbus"
	infrarepo "github.com/kaushal/skillcredits/infra/repository"
	"github.com/kaushal/skillcredits/pkg/app"
	"github.com/kaushal/skillcredits/pkg/middleware"
	pkgtestutils "github.com/kaushal/skillcredits/pkg/testutils"
	"github.com/kaushal/skillcredits/webapi"
	"github.com/kaushal/skillcredits/webapi/common"
	"github.com/stretchr/testify/require"
)

// TestServer is a wired fiber app plus the services behind it.
type TestServer struct {
	t     *testing.T
	Fiber *fiber.App
	App   *app.App
	Bus   *infraeventbus.MemoryEventBus
}

// NewTestServer wires the app on a private in-memory store.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := infraeventbus.NewWithMemory(logger, infraeventbus.WithRecording())
	a := app.New(&app.Deps{
		Uow:      infrarepo.NewUoW(pkgtestutils.NewTestDB(t)),
		EventBus: bus,
		Logger:   logger,
	}, pkgtestutils.TestConfig())
	return &TestServer{t: t, Fiber: webapi.SetupApp(a), App: a, Bus: bus}
}

// NewUser returns a fresh user id and a bearer token for it.
func (s *TestServer) NewUser() (uuid.UUID, string) {
	userID := uuid.New()
	return userID, pkgtestutils.MakeToken(s.t, userID)
}

// NewAccount opens an account through the API and returns its user and token.
func (s *TestServer) NewAccount() (uuid.UUID, string) {
	userID, token := s.NewUser()
	resp := s.Do(fiber.MethodPost, "/credits/account", "", token)
	require.Equal(s.t, fiber.StatusCreated, resp.StatusCode)
	return userID, token
}

// Do sends a request with an optional bearer token.
func (s *TestServer) Do(method, path, body, token string) *http.Response {
	resp := pkgtestutils.MakeRequest(s.Fiber, method, path, body, token)
	s.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DoInternal sends a request carrying the internal service key.
func (s *TestServer) DoInternal(method, path, body string) *http.Response {
	resp := pkgtestutils.MakeRequest(s.Fiber, method, path, body, "",
		middleware.InternalKeyHeader, pkgtestutils.TestInternalKey)
	s.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Decode reads a success envelope and unmarshals its data into out.
func Decode(t *testing.T, resp *http.Response, out any) common.Response {
	t.Helper()
	var raw struct {
		Status  int             `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return common.Response{Status: raw.Status, Message: raw.Message}
}

// DecodeProblem reads an RFC 9457 problem body.
func DecodeProblem(t *testing.T, resp *http.Response) common.ProblemDetails {
	t.Helper()
	var pd common.ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	return pd
}
