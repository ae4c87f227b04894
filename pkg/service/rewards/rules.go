package rewards

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
	"github.com/shopspring/decimal"
)

// Earning policy. Amounts are product decisions, not derived values.
const (
	// TeacherCreditsPerHour and LearnerCreditsPerHour split a session 3:1
	// in favour of the teacher.
	TeacherCreditsPerHour = 60
	LearnerCreditsPerHour = 20

	MinSessionMinutes = 1
	MaxSessionMinutes = 480

	StreakBaseCredits    = 5
	StreakStepCredits    = 2
	StreakMaxCredits     = 50
	SkillVerifiedCredits = 25
	VideoUploadCredits   = 15
	HelpfulCommentCredit = 5
	SignupBonusCredits   = 100
)

// ratingMultipliers maps a 1-5 star session rating to a credit multiplier.
// Unrated sessions use 1.
var ratingMultipliers = map[int]decimal.Decimal{
	1: decimal.RequireFromString("0.75"),
	2: decimal.RequireFromString("0.9"),
	3: decimal.NewFromInt(1),
	4: decimal.RequireFromString("1.25"),
	5: decimal.RequireFromString("1.5"),
}

// Award is one credit the rules grant for an event.
type Award struct {
	UserID         uuid.UUID
	Amount         int64
	Category       transaction.Category
	Description    string
	Metadata       map[string]any
	IdempotencyKey string
}

// SessionCompleted is emitted when a tutoring session ends.
type SessionCompleted struct {
	SessionID       string    `json:"session_id" validate:"required"`
	TeacherID       uuid.UUID `json:"teacher_id" validate:"required"`
	LearnerID       uuid.UUID `json:"learner_id" validate:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	// Rating is 1-5 stars; 0 means unrated.
	Rating int `json:"rating" validate:"gte=0,lte=5"`
}

// BadgeEarned is emitted by the achievement subsystem.
type BadgeEarned struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	BadgeID string    `json:"badge_id" validate:"required"`
	Name    string    `json:"name"`
	Points  int64     `json:"points" validate:"gt=0,lte=1000000000"`
}

// DailyStreak is emitted once per day a user keeps a streak alive.
type DailyStreak struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Days   int       `json:"days" validate:"gte=1"`
	// Date is the streak day; zero means today (UTC).
	Date time.Time `json:"date"`
}

// SkillVerified is emitted when a skill passes verification.
type SkillVerified struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	SkillID string    `json:"skill_id" validate:"required"`
}

// VideoUploaded is emitted when a user publishes a teaching video.
type VideoUploaded struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	VideoID string    `json:"video_id" validate:"required"`
}

// HelpfulComment is emitted when a comment is marked helpful.
type HelpfulComment struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	CommentID string    `json:"comment_id" validate:"required"`
}

// UserSignedUp is emitted by the identity provider for a new user.
type UserSignedUp struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// SessionAwards credits both sides of a session. Minutes are clamped to
// [MinSessionMinutes, MaxSessionMinutes]; each amount rounds up and is at least 1.
func SessionAwards(e SessionCompleted) []Award {
	minutes := clamp(e.DurationMinutes, MinSessionMinutes, MaxSessionMinutes)
	mult, ok := ratingMultipliers[e.Rating]
	if !ok {
		mult = decimal.NewFromInt(1)
	}
	meta := func(role string) map[string]any {
		return map[string]any{
			"session_id":       e.SessionID,
			"role":             role,
			"duration_minutes": minutes,
			"rating":           e.Rating,
		}
	}
	return []Award{
		{
			UserID:         e.TeacherID,
			Amount:         sessionCredits(TeacherCreditsPerHour, minutes, mult),
			Category:       transaction.CategorySkillTeaching,
			Description:    fmt.Sprintf("Taught a %d minute session", minutes),
			Metadata:       meta("teacher"),
			IdempotencyKey: transaction.IdempotencyKey(transaction.CategorySkillTeaching, e.SessionID),
		},
		{
			UserID:         e.LearnerID,
			Amount:         sessionCredits(LearnerCreditsPerHour, minutes, mult),
			Category:       transaction.CategorySkillLearning,
			Description:    fmt.Sprintf("Attended a %d minute session", minutes),
			Metadata:       meta("learner"),
			IdempotencyKey: transaction.IdempotencyKey(transaction.CategorySkillLearning, e.SessionID),
		},
	}
}

func sessionCredits(perHour int64, minutes int, mult decimal.Decimal) int64 {
	amount := decimal.NewFromInt(perHour * int64(minutes)).
		Div(decimal.NewFromInt(60)).
		Mul(mult).
		Ceil().
		IntPart()
	if amount < 1 {
		return 1
	}
	return amount
}

// BadgeAward credits the declared point value of a badge.
func BadgeAward(e BadgeEarned) Award {
	return Award{
		UserID:         e.UserID,
		Amount:         e.Points,
		Category:       transaction.CategoryBadge,
		Description:    "Badge earned: " + e.Name,
		Metadata:       map[string]any{"badge_id": e.BadgeID, "badge_name": e.Name},
		IdempotencyKey: transaction.IdempotencyKey(transaction.CategoryBadge, e.BadgeID),
	}
}

// StreakCredits grows by StreakStepCredits per day and caps at StreakMaxCredits.
func StreakCredits(days int) int64 {
	if days < 1 {
		days = 1
	}
	amount := int64(StreakBaseCredits + StreakStepCredits*(days-1))
	return min(amount, StreakMaxCredits)
}

// StreakAward credits one streak day; the key is the calendar day.
func StreakAward(e DailyStreak, now time.Time) Award {
	day := e.Date
	if day.IsZero() {
		day = now
	}
	date := day.UTC().Format(time.DateOnly)
	return Award{
		UserID:         e.UserID,
		Amount:         StreakCredits(e.Days),
		Category:       transaction.CategoryStreak,
		Description:    fmt.Sprintf("%d day streak", e.Days),
		Metadata:       map[string]any{"streak_days": e.Days, "date": date},
		IdempotencyKey: transaction.IdempotencyKey(transaction.CategoryStreak, date),
	}
}

func SkillVerifiedAward(e SkillVerified) Award {
	return Award{
		UserID:         e.UserID,
		Amount:         SkillVerifiedCredits,
		Category:       transaction.CategorySkillVerification,
		Description:    "Skill verified",
		Metadata:       map[string]any{"skill_id": e.SkillID},
		IdempotencyKey: transaction.IdempotencyKey(transaction.CategorySkillVerification, e.SkillID),
	}
}

func VideoUploadedAward(e VideoUploaded) Award {
	return Award{
		UserID:         e.UserID,
		Amount:         VideoUploadCredits,
		Category:       transaction.CategoryContentUpload,
		Description:    "Teaching video uploaded",
		Metadata:       map[string]any{"video_id": e.VideoID},
		IdempotencyKey: transaction.IdempotencyKey(transaction.CategoryContentUpload, e.VideoID),
	}
}

func HelpfulCommentAward(e HelpfulComment) Award {
	return Award{
		UserID:         e.UserID,
		Amount:         HelpfulCommentCredit,
		Category:       transaction.CategoryHelpfulComment,
		Description:    "Comment marked helpful",
		Metadata:       map[string]any{"comment_id": e.CommentID},
		IdempotencyKey: transaction.IdempotencyKey(transaction.CategoryHelpfulComment, e.CommentID),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
