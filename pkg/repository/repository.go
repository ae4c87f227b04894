// Package repository declares the ledger store contracts.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
)

// AccountRepository stores one account per user.
type AccountRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*account.Account, error)
	// Create inserts the account; an existing account yields domain.ErrAlreadyExists.
	Create(ctx context.Context, a *account.Account) error
	// AdjustBalance atomically adds delta to the balance and returns the new balance.
	// A negative delta that would overdraw the account fails with
	// account.ErrInsufficientCredits and changes nothing.
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error)
	// SetLevel stores a higher level; lower values are ignored.
	SetLevel(ctx context.Context, userID uuid.UUID, level int) error
}

// TransactionRepository is the append-only transaction log.
type TransactionRepository interface {
	// Append inserts tx. A duplicate (user, idempotency key) yields domain.ErrAlreadyExists.
	Append(ctx context.Context, tx *transaction.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*transaction.Transaction, error)
	// ListByUser returns newest first, ties broken by insertion order.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error)
	// Totals sums completed transactions created at or after since.
	// The zero time covers the whole history.
	Totals(ctx context.Context, userID uuid.UUID, since time.Time) (transaction.Totals, error)
}

// ConversionRepository stores conversion requests.
type ConversionRepository interface {
	Create(ctx context.Context, r *conversion.Request) error
	Get(ctx context.Context, id uuid.UUID) (*conversion.Request, error)
	ListByStatus(ctx context.Context, status conversion.Status, limit int) ([]*conversion.Request, error)
	// UpdateStatus persists a settlement only if the stored request is still pending.
	UpdateStatus(ctx context.Context, r *conversion.Request) error
}
