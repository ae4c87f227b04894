// Package transaction models the immutable entries of the credit ledger.
package transaction

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain/account"
)

var (
	// ErrInvalidStatusTransition is returned when a transaction leaves a terminal status.
	ErrInvalidStatusTransition = errors.New("invalid transaction status transition")
	// ErrInvalidType is returned for an unknown transaction type.
	ErrInvalidType = errors.New("invalid transaction type")
	// ErrCategoryRequired is returned when a transaction has no category.
	ErrCategoryRequired = errors.New("transaction category is required")
)

// Type tells whether a transaction adds or removes credits.
type Type string

const (
	TypeEarn    Type = "earn"
	TypeSpend   Type = "spend"
	TypeConvert Type = "convert"
)

// IsDebit reports whether the type removes credits from the balance.
func (t Type) IsDebit() bool {
	return t == TypeSpend || t == TypeConvert
}

func (t Type) valid() bool {
	switch t {
	case TypeEarn, TypeSpend, TypeConvert:
		return true
	}
	return false
}

// Category is the business reason behind a transaction.
// Callers may use values outside the predefined set.
type Category string

const (
	CategorySkillTeaching     Category = "skill_teaching"
	CategorySkillLearning     Category = "skill_learning"
	CategoryBadge             Category = "badge"
	CategoryStreak            Category = "streak"
	CategorySkillVerification Category = "skill_verification"
	CategoryContentUpload     Category = "content_upload"
	CategoryHelpfulComment    Category = "helpful_comment"
	CategorySignupBonus       Category = "signup_bonus"
	CategoryPurchase          Category = "purchase"
	CategoryCryptoConversion  Category = "crypto_conversion"
	CategoryConversionRefund  Category = "conversion_refund"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Transaction is a balance-changing event. Amount is always positive;
// the sign is implied by Type.
type Transaction struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Type           Type
	Category       Category
	Amount         int64
	Status         Status
	Description    string
	Metadata       map[string]any
	IdempotencyKey string
	CreatedAt      time.Time
}

// New builds a pending transaction. Use Complete or Fail to settle it.
func New(
	userID uuid.UUID,
	txType Type,
	category Category,
	amount int64,
	metadata map[string]any,
) (*Transaction, error) {
	if !txType.valid() {
		return nil, ErrInvalidType
	}
	if strings.TrimSpace(string(category)) == "" {
		return nil, ErrCategoryRequired
	}
	if amount <= 0 {
		return nil, account.ErrAmountMustBePositive
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      txType,
		Category:  category,
		Amount:    amount,
		Status:    StatusPending,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Delta is the signed effect of the transaction on the balance.
func (t *Transaction) Delta() int64 {
	if t.Type.IsDebit() {
		return -t.Amount
	}
	return t.Amount
}

// Complete moves a pending transaction to completed.
func (t *Transaction) Complete() error {
	if t.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	t.Status = StatusCompleted
	return nil
}

// Fail moves a pending transaction to failed.
func (t *Transaction) Fail() error {
	if t.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	t.Status = StatusFailed
	return nil
}

// IdempotencyKey derives the deterministic key of a domain event.
// The key is unique per user, so the user id is not part of it.
func IdempotencyKey(category Category, sourceEventID string) string {
	return string(category) + ":" + sourceEventID
}

// Totals are aggregations over the completed transactions of one user.
type Totals struct {
	Earned int64
	Spent  int64
}

// Stats is the derived earnings view of an account.
type Stats struct {
	Balance        int64 `json:"balance"`
	Level          int   `json:"level"`
	TotalEarned    int64 `json:"total_earned"`
	TotalSpent     int64 `json:"total_spent"`
	WeeklyEarnings int64 `json:"weekly_earnings"`
}
