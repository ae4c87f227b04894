package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
	"github.com/kaushal/skillcredits/pkg/repository"
	"gorm.io/gorm"
)

// ErrTransactionNotFound is returned by Get when no transaction matches.
var ErrTransactionNotFound = errors.New("transaction not found")

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction repository on db, which may be a transaction.
func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Append(ctx context.Context, tx *transaction.Transaction) error {
	row := mapTransactionToModel(tx)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&row).Error
	})
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var row Transaction
	err := WrapError(func() error {
		return r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapTransactionToDomain(&row), nil
}

// GetByIdempotencyKey returns (nil, nil) when the key was never used.
func (r *transactionRepository) GetByIdempotencyKey(
	ctx context.Context,
	userID uuid.UUID,
	key string,
) (*transaction.Transaction, error) {
	var rows []Transaction
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ? AND idempotency_key = ?", userID, key).
			Limit(1).
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapTransactionToDomain(&rows[0]), nil
}

func (r *transactionRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*transaction.Transaction, error) {
	var rows []Transaction
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Order("seq DESC").
			Limit(limit).
			Offset(offset).
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}
	result := make([]*transaction.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, mapTransactionToDomain(&rows[i]))
	}
	return result, nil
}

func (r *transactionRepository) Totals(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (transaction.Totals, error) {
	var rows []struct {
		Type  string
		Total int64
	}
	q := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND status = ?", userID, string(transaction.StatusCompleted))
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since.UTC())
	}
	if err := WrapError(func() error {
		return q.Group("type").Scan(&rows).Error
	}); err != nil {
		return transaction.Totals{}, err
	}

	var totals transaction.Totals
	for _, row := range rows {
		if transaction.Type(row.Type).IsDebit() {
			totals.Spent += row.Total
		} else if transaction.Type(row.Type) == transaction.TypeEarn {
			totals.Earned += row.Total
		}
	}
	return totals, nil
}

func mapTransactionToModel(tx *transaction.Transaction) Transaction {
	var key *string
	if tx.IdempotencyKey != "" {
		k := tx.IdempotencyKey
		key = &k
	}
	return Transaction{
		ID:             tx.ID,
		UserID:         tx.UserID,
		Type:           string(tx.Type),
		Category:       string(tx.Category),
		Amount:         tx.Amount,
		Status:         string(tx.Status),
		Description:    tx.Description,
		Metadata:       tx.Metadata,
		IdempotencyKey: key,
		CreatedAt:      tx.CreatedAt,
	}
}

func mapTransactionToDomain(row *Transaction) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Type:        transaction.Type(row.Type),
		Category:    transaction.Category(row.Category),
		Amount:      row.Amount,
		Status:      transaction.Status(row.Status),
		Description: row.Description,
		Metadata:    row.Metadata,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if row.IdempotencyKey != nil {
		tx.IdempotencyKey = *row.IdempotencyKey
	}
	if tx.Metadata == nil {
		tx.Metadata = map[string]any{}
	}
	return tx
}
