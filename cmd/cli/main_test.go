package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/infra/initializer"
	"github.com/kaushal/skillcredits/pkg/app"
	"github.com/kaushal/skillcredits/pkg/testutils"
	"github.com/kaushal/skillcredits/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	cfg := testutils.TestConfig()
	deps, err := initializer.InitializeDependencies(cfg)
	require.NoError(t, err)
	a := app.New(deps, cfg)
	t.Cleanup(func() { _ = a.Close() })
	out := &bytes.Buffer{}
	return &cli{app: a, out: out}, out
}

func TestRun_Usage(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), nil, out))
	assert.Contains(t, out.String(), "Usage: cli")
}

func TestHashKey(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, hashKey([]string{"s3cret"}, out))
	hash, ok := strings.CutPrefix(strings.TrimSpace(out.String()), "AUTH_INTERNAL_KEY_HASH=")
	require.True(t, ok)
	assert.True(t, utils.CheckKeyHash("s3cret", hash))

	assert.Error(t, hashKey([]string{"   "}, out))
}

func TestAwardBalanceAndStats(t *testing.T) {
	c, out := newCLI(t)
	ctx := context.Background()
	userID := uuid.New()
	_, err := c.app.LedgerService.OpenAccount(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, c.dispatch(ctx, []string{"award", userID.String(), "40", "badge", "badge:manual-1"}))
	assert.Contains(t, out.String(), "Awarded 40 credits")

	out.Reset()
	require.NoError(t, c.dispatch(ctx, []string{"award", userID.String(), "40", "badge", "badge:manual-1"}))
	assert.Contains(t, out.String(), "Already awarded")

	out.Reset()
	require.NoError(t, c.dispatch(ctx, []string{"balance", userID.String()}))
	assert.Contains(t, out.String(), "140 credits")

	out.Reset()
	require.NoError(t, c.dispatch(ctx, []string{"history", userID.String(), "5"}))
	assert.Contains(t, out.String(), "signup_bonus")
	assert.Contains(t, out.String(), "+40")

	out.Reset()
	require.NoError(t, c.dispatch(ctx, []string{"stats", userID.String()}))
	assert.Contains(t, out.String(), "total earned:    140")
}

func TestDispatchErrors(t *testing.T) {
	c, _ := newCLI(t)
	ctx := context.Background()

	assert.Error(t, c.dispatch(ctx, []string{"balance"}))
	assert.Error(t, c.dispatch(ctx, []string{"balance", "nope"}))
	assert.Error(t, c.dispatch(ctx, []string{"balance", uuid.NewString()}))
	assert.Error(t, c.dispatch(ctx, []string{"award", uuid.NewString(), "x", "badge"}))
	assert.Error(t, c.dispatch(ctx, []string{"history", uuid.NewString(), "-2"}))
	assert.Error(t, c.dispatch(ctx, []string{"launch"}))
}

func TestPendingAndToken(t *testing.T) {
	c, out := newCLI(t)
	ctx := context.Background()

	require.NoError(t, c.dispatch(ctx, []string{"pending"}))
	assert.Contains(t, out.String(), "No pending conversions")

	out.Reset()
	userID := uuid.New()
	require.NoError(t, c.dispatch(ctx, []string{"token", userID.String()}))
	token := strings.TrimSpace(out.String())
	assert.Equal(t, 2, strings.Count(token, "."))
}
