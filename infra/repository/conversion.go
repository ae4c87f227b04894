package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/kaushal/skillcredits/pkg/repository"
	"gorm.io/gorm"
)

type conversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository creates a conversion request repository on db, which may be a transaction.
func NewConversionRepository(db *gorm.DB) repository.ConversionRepository {
	return &conversionRepository{db: db}
}

func (r *conversionRepository) Create(ctx context.Context, req *conversion.Request) error {
	row := ConversionRequest{
		ID:             req.ID,
		UserID:         req.UserID,
		TransactionID:  req.TransactionID,
		CreditsAmount:  req.CreditsAmount,
		CryptoType:     string(req.CryptoType),
		ConversionRate: req.ConversionRate,
		CryptoAmount:   req.CryptoAmount,
		WalletAddress:  req.WalletAddress,
		Status:         string(req.Status),
		TxHash:         req.TxHash,
		FailureReason:  req.FailureReason,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&row).Error
	})
}

func (r *conversionRepository) Get(ctx context.Context, id uuid.UUID) (*conversion.Request, error) {
	var row ConversionRequest
	err := WrapError(func() error {
		return r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, conversion.ErrConversionNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapConversionToDomain(&row), nil
}

// ListByStatus returns the oldest requests first, so settlement is FIFO.
func (r *conversionRepository) ListByStatus(
	ctx context.Context,
	status conversion.Status,
	limit int,
) ([]*conversion.Request, error) {
	var rows []ConversionRequest
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).
			Where("status = ?", string(status)).
			Order("created_at ASC").
			Limit(limit).
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}
	out := make([]*conversion.Request, 0, len(rows))
	for i := range rows {
		out = append(out, mapConversionToDomain(&rows[i]))
	}
	return out, nil
}

func (r *conversionRepository) UpdateStatus(ctx context.Context, req *conversion.Request) error {
	res := r.db.WithContext(ctx).
		Model(&ConversionRequest{}).
		Where("id = ? AND status = ?", req.ID, string(conversion.StatusPending)).
		Updates(map[string]any{
			"status":         string(req.Status),
			"tx_hash":        req.TxHash,
			"failure_reason": req.FailureReason,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return conversion.ErrInvalidStatusTransition
	}
	return nil
}

func mapConversionToDomain(row *ConversionRequest) *conversion.Request {
	return &conversion.Request{
		ID:             row.ID,
		UserID:         row.UserID,
		TransactionID:  row.TransactionID,
		CreditsAmount:  row.CreditsAmount,
		CryptoType:     conversion.CryptoType(row.CryptoType),
		ConversionRate: row.ConversionRate,
		CryptoAmount:   row.CryptoAmount,
		WalletAddress:  row.WalletAddress,
		Status:         conversion.Status(row.Status),
		TxHash:         row.TxHash,
		FailureReason:  row.FailureReason,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}
