package account

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest single credit or debit.
const MaxAmount int64 = 1_000_000_000

var (
	// ErrAccountNotFound is returned when no account exists for a user.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientCredits is returned when a debit would take the balance below zero.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrAmountMustBePositive is returned when a credit or debit amount is zero or negative.
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrUserIDRequired is returned when an account is built without an owner.
	ErrUserIDRequired = errors.New("user id is required")

	// ErrAmountTooLarge is returned when an amount exceeds MaxAmount.
	ErrAmountTooLarge = fmt.Errorf("%w: amount exceeds %d", domain.ErrValidation, MaxAmount)

	// ErrNegativeBalance is returned when hydrating an account with a negative balance.
	ErrNegativeBalance = errors.New("credit balance cannot be negative")
)

// CreditsPerLevelStep scales the level curve: reaching level n needs
// (n-1)^2 * CreditsPerLevelStep lifetime earned credits.
const CreditsPerLevelStep = 100

// Account is a user's credit wallet.
//
// Invariants:
// - CreditBalance is never negative.
// - Level never decreases.
type Account struct {
	UserID              uuid.UUID
	CreditBalance       int64
	Level               int
	KaushalTokenBalance decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	userID    uuid.UUID
	balance   int64
	level     int
	tokens    decimal.Decimal
	createdAt time.Time
	updatedAt time.Time
}

// New creates a Builder for a fresh level-1 account with a zero balance.
func New() *Builder {
	now := time.Now().UTC()
	return &Builder{
		level:     1,
		tokens:    decimal.Zero,
		createdAt: now,
		updatedAt: now,
	}
}

// WithUserID sets the owner. This is a mandatory field.
func (b *Builder) WithUserID(userID uuid.UUID) *Builder {
	b.userID = userID
	return b
}

// WithBalance sets the credit balance. Only used when hydrating from the store or in tests.
func (b *Builder) WithBalance(balance int64) *Builder {
	b.balance = balance
	return b
}

// WithLevel sets the stored level.
func (b *Builder) WithLevel(level int) *Builder {
	b.level = level
	return b
}

// WithTokenBalance sets the secondary currency balance.
func (b *Builder) WithTokenBalance(tokens decimal.Decimal) *Builder {
	b.tokens = tokens
	return b
}

// WithCreatedAt sets the creation timestamp.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// WithUpdatedAt sets the last-updated timestamp.
func (b *Builder) WithUpdatedAt(t time.Time) *Builder {
	b.updatedAt = t
	return b
}

// Build validates the invariants and returns the Account.
func (b *Builder) Build() (*Account, error) {
	if b.userID == uuid.Nil {
		return nil, ErrUserIDRequired
	}
	if b.balance < 0 {
		return nil, ErrNegativeBalance
	}
	level := b.level
	if level < 1 {
		level = 1
	}
	return &Account{
		UserID:              b.userID,
		CreditBalance:       b.balance,
		Level:               level,
		KaushalTokenBalance: b.tokens,
		CreatedAt:           b.createdAt,
		UpdatedAt:           b.updatedAt,
	}, nil
}

// CanSpend reports whether the balance covers amount.
func (a *Account) CanSpend(amount int64) bool {
	return amount > 0 && a.CreditBalance >= amount
}

// RaiseLevel moves the account to the level earned by totalEarned.
// It never lowers the level and reports whether the level changed.
func (a *Account) RaiseLevel(totalEarned int64) bool {
	next := LevelFor(totalEarned)
	if next <= a.Level {
		return false
	}
	a.Level = next
	return true
}

// LevelFor returns the level reached with totalEarned lifetime credits.
func LevelFor(totalEarned int64) int {
	if totalEarned <= 0 {
		return 1
	}
	return 1 + int(math.Sqrt(float64(totalEarned)/CreditsPerLevelStep))
}

// ValidateAmount rejects zero, negative and oversized amounts.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	if amount > MaxAmount {
		return ErrAmountTooLarge
	}
	return nil
}
