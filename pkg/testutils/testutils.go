// Package testutils holds the ledger fixtures shared by package tests.
package testutils

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/infra"
	infraeventbus "github.com/kaushal/skillcredits/infra/eventbus"
	infrarepo "github.com/kaushal/skillcredits/infra/repository"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestJWTSecret signs the tokens produced by MakeToken.
const TestJWTSecret = "test-secret"

// TestInternalKey is the plaintext of TestConfig's internal key hash.
const TestInternalKey = "internal-test-key"

var internalKeyHash = sync.OnceValue(func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(TestInternalKey), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
})

// NewTestDB opens a private in-memory SQLite ledger store.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewSQLiteConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// TestConfig returns an App config with every section populated.
func TestConfig() *config.App {
	return &config.App{
		Env:    "test",
		Server: &config.Server{Scheme: "http", Host: "localhost", Port: 3000},
		Log:    &config.Log{Format: "text"},
		DB:     &config.DB{Url: "sqlite://:memory:"},
		Auth: &config.Auth{
			Strategy:        "jwt",
			Jwt:             &config.Jwt{Secret: TestJWTSecret, Expiry: time.Hour},
			InternalKeyHash: internalKeyHash(),
		},
		Redis:      &config.Redis{KeyPrefix: "test:"},
		EventBus:   &config.EventBus{Driver: "memory"},
		Rabbit:     &config.Rabbit{Queue: "reward_events", Workers: 1, Prefetch: 1, RetryDelay: time.Second},
		RateLimit:  &config.RateLimit{MaxRequests: 100000, Window: time.Minute},
		Ledger:     &config.Ledger{StoreTimeout: 5 * time.Second, SignupBonus: 100, LockStripes: 64},
		Conversion: &config.Conversion{MinCredits: 100},
	}
}

// NewTestDeps wires a SQLite unit of work and an in-memory event bus.
func NewTestDeps(t *testing.T) (config.Deps, *infraeventbus.MemoryEventBus) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := infraeventbus.NewWithMemory(logger, infraeventbus.WithRecording())
	return config.Deps{
		Uow:      infrarepo.NewUoW(NewTestDB(t)),
		EventBus: bus,
		Logger:   logger,
		Config:   TestConfig(),
	}, bus
}

// MakeToken signs a JWT carrying userID the way the identity provider does.
func MakeToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(TestJWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

// MakeRequest sends a request to app; token and internal key are optional.
func MakeRequest(app *fiber.App, method, path, body, token string, headers ...string) *http.Response {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		panic(err)
	}
	return resp
}

// NewPostgresDB starts a Postgres container and returns a migrated connection.
// It skips the test under -short.
func NewPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	ctx := context.Background()
	pg, err := tcpostgres.Run(
		ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("skillcredits"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("Postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pg) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get Postgres DSN: %v", err)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to Postgres: %v", err)
	}
	if err := infra.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

// NewRedisURL starts a Redis container and returns its redis:// URL.
// It skips the test under -short or when no container runtime is available.
func NewRedisURL(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.0.5",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	return "redis://" + host + ":" + port.Port() + "/0"
}
