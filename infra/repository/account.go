package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/repository"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository on db, which may be a transaction.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	var row Account
	err := WrapError(func() error {
		return r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapAccountToDomain(&row)
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	row := Account{
		UserID:              a.UserID,
		CreditBalance:       a.CreditBalance,
		Level:               a.Level,
		KaushalTokenBalance: a.KaushalTokenBalance,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&row).Error
	})
}

// AdjustBalance applies delta with a conditional update, so concurrent
// debits can never both pass the balance check.
func (r *accountRepository) AdjustBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("user_id = ? AND credit_balance + ? >= 0", userID, delta).
		Updates(map[string]any{
			"credit_balance": gorm.Expr("credit_balance + ?", delta),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := WrapError(func() error {
			return r.db.WithContext(ctx).Model(&Account{}).Where("user_id = ?", userID).Count(&count).Error
		}); err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, account.ErrAccountNotFound
		}
		return 0, account.ErrInsufficientCredits
	}

	var balance int64
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).
			Model(&Account{}).
			Where("user_id = ?", userID).
			Pluck("credit_balance", &balance).Error
	}); err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *accountRepository) SetLevel(ctx context.Context, userID uuid.UUID, level int) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).
			Model(&Account{}).
			Where("user_id = ? AND level < ?", userID, level).
			Updates(map[string]any{"level": level, "updated_at": time.Now().UTC()}).Error
	})
}

func mapAccountToDomain(row *Account) (*account.Account, error) {
	return account.New().
		WithUserID(row.UserID).
		WithBalance(row.CreditBalance).
		WithLevel(row.Level).
		WithTokenBalance(row.KaushalTokenBalance).
		WithCreatedAt(row.CreatedAt).
		WithUpdatedAt(row.UpdatedAt).
		Build()
}
