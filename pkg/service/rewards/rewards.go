// Package rewards is the earning rules engine. It turns platform events into
// keyed earn calls, so replaying an event never credits twice.
package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/service/ledger"
)

// Event type names carried in Envelope.Type.
const (
	EventSessionCompleted = "session_completed"
	EventBadgeEarned      = "badge_earned"
	EventDailyStreak      = "daily_streak"
	EventSkillVerified    = "skill_verified"
	EventVideoUploaded    = "video_uploaded"
	EventHelpfulComment   = "helpful_comment"
	EventUserSignedUp     = "user_signed_up"
)

var (
	// ErrUnknownEventType is returned for an envelope type with no rule.
	ErrUnknownEventType = errors.New("unknown reward event type")
	// ErrSameParticipant is returned when a session's teacher is also its learner.
	ErrSameParticipant = errors.New("teacher and learner must differ")
)

// Envelope is the wire form of a reward event, shared by the HTTP route
// and the message queue consumer. UserID is used when the payload names no user.
type Envelope struct {
	Type    string          `json:"type" validate:"required"`
	UserID  uuid.UUID       `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// Ledger is the part of the transaction engine the rules drive.
type Ledger interface {
	Earn(ctx context.Context, p ledger.EarnParams) (*ledger.EarnResult, error)
	OpenAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error)
}

// Service applies earning rules to reward events.
type Service struct {
	ledger   Ledger
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a rules Service on top of l.
func NewService(l Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:   l,
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle decodes env, applies its rule and returns the resulting earn outcomes.
// Replayed events come back with Duplicate set.
func (s *Service) Handle(ctx context.Context, env Envelope) ([]*ledger.EarnResult, error) {
	if err := s.validate.Struct(env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	logger := s.logger.With("event_type", env.Type)

	if env.Type == EventUserSignedUp {
		var e UserSignedUp
		if err := s.decode(env, &e, &e.UserID); err != nil {
			return nil, err
		}
		// OpenAccount grants the signup bonus.
		acc, err := s.ledger.OpenAccount(ctx, e.UserID)
		if err != nil {
			logger.Error("Signup provisioning failed", "user_id", e.UserID, "error", err)
			return nil, err
		}
		return []*ledger.EarnResult{{Balance: acc.CreditBalance, Level: acc.Level}}, nil
	}

	awards, err := s.awardsFor(env)
	if err != nil {
		logger.Warn("Reward event rejected", "error", err)
		return nil, err
	}

	results := make([]*ledger.EarnResult, 0, len(awards))
	for _, a := range awards {
		res, err := s.ledger.Earn(ctx, ledger.EarnParams{
			UserID:         a.UserID,
			Amount:         a.Amount,
			Category:       a.Category,
			Description:    a.Description,
			Metadata:       a.Metadata,
			IdempotencyKey: a.IdempotencyKey,
		})
		if err != nil {
			logger.Error("Reward award failed", "user_id", a.UserID, "key", a.IdempotencyKey, "error", err)
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) awardsFor(env Envelope) ([]Award, error) {
	switch env.Type {
	case EventSessionCompleted:
		var e SessionCompleted
		if err := s.decode(env, &e, nil); err != nil {
			return nil, err
		}
		if e.TeacherID == e.LearnerID {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, ErrSameParticipant)
		}
		return SessionAwards(e), nil
	case EventBadgeEarned:
		var e BadgeEarned
		if err := s.decode(env, &e, &e.UserID); err != nil {
			return nil, err
		}
		return []Award{BadgeAward(e)}, nil
	case EventDailyStreak:
		var e DailyStreak
		if err := s.decode(env, &e, &e.UserID); err != nil {
			return nil, err
		}
		return []Award{StreakAward(e, s.now())}, nil
	case EventSkillVerified:
		var e SkillVerified
		if err := s.decode(env, &e, &e.UserID); err != nil {
			return nil, err
		}
		return []Award{SkillVerifiedAward(e)}, nil
	case EventVideoUploaded:
		var e VideoUploaded
		if err := s.decode(env, &e, &e.UserID); err != nil {
			return nil, err
		}
		return []Award{VideoUploadedAward(e)}, nil
	case EventHelpfulComment:
		var e HelpfulComment
		if err := s.decode(env, &e, &e.UserID); err != nil {
			return nil, err
		}
		return []Award{HelpfulCommentAward(e)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
}

// decode unmarshals the payload into dst, defaults *userID from the
// envelope and validates the result.
func (s *Service) decode(env Envelope, dst any, userID *uuid.UUID) error {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", domain.ErrValidation, err)
	}
	if userID != nil && *userID == uuid.Nil {
		*userID = env.UserID
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
