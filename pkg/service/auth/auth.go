// Package auth resolves caller identity: end users by JWT bearer token,
// internal callers by a shared key.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/utils"
)

type contextKey string

const userContextKey contextKey = "user"

// ErrInvalidToken is returned when a token carries no usable user id.
var ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)

type Strategy interface {
	GetCurrentUserID(ctx context.Context) (uuid.UUID, error)
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)
}

type Service struct {
	strategy        Strategy
	internalKeyHash string
	logger          *slog.Logger
}

func New(strategy Strategy, internalKeyHash string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{strategy: strategy, internalKeyHash: internalKeyHash, logger: logger}
}

func NewWithJWT(cfg *config.Auth, logger *slog.Logger) *Service {
	return New(NewJWTStrategy(cfg.Jwt, logger), cfg.InternalKeyHash, logger)
}

// GetCurrentUserId extracts the caller from a token verified by the JWT middleware.
func (s *Service) GetCurrentUserId(token *jwt.Token) (uuid.UUID, error) {
	userID, err := s.strategy.GetCurrentUserID(
		context.WithValue(context.Background(), userContextKey, token),
	)
	if err != nil {
		s.logger.Warn("GetCurrentUserId failed", "error", err)
		return uuid.Nil, err
	}
	return userID, nil
}

func (s *Service) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := s.strategy.GenerateToken(ctx, userID)
	if err != nil {
		s.logger.Error("GenerateToken failed", "user_id", userID, "error", err)
		return "", err
	}
	return token, nil
}

// InternalEnabled reports whether an internal key hash is configured.
func (s *Service) InternalEnabled() bool {
	return s.internalKeyHash != ""
}

// CheckInternalKey compares key against the configured bcrypt hash.
func (s *Service) CheckInternalKey(key string) bool {
	valid := utils.CheckKeyHash(key, s.internalKeyHash)
	if !valid {
		s.logger.Warn("Internal key check failed")
	}
	return valid
}

// JWTStrategy reads and mints HS256 tokens carrying a user_id claim.
type JWTStrategy struct {
	cfg    *config.Jwt
	logger *slog.Logger
}

func NewJWTStrategy(cfg *config.Jwt, logger *slog.Logger) *JWTStrategy {
	return &JWTStrategy{cfg: cfg, logger: logger}
}

func (s *JWTStrategy) GenerateToken(_ context.Context, userID uuid.UUID) (string, error) {
	if s.cfg == nil || s.cfg.Secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	expiry := s.cfg.Expiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(expiry).Unix(),
	})
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *JWTStrategy) GetCurrentUserID(ctx context.Context) (uuid.UUID, error) {
	token, ok := ctx.Value(userContextKey).(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(raw)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
