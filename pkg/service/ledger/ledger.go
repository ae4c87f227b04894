// Package ledger is the transaction engine: the only code path that changes
// credit balances. Every mutation runs in one unit of work that applies the
// conditional balance update and appends the transaction row, so the balance
// always equals the fold of the completed transaction log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/domain/events"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
	"github.com/kaushal/skillcredits/pkg/eventbus"
	"github.com/kaushal/skillcredits/pkg/repository"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	// DefaultSpendSource is the category of a spend without an explicit source.
	DefaultSpendSource = transaction.CategoryPurchase

	weeklyWindow = 7 * 24 * time.Hour
)

// Service provides the credit operations of the ledger.
type Service struct {
	uow          repository.UnitOfWork
	bus          eventbus.Bus
	logger       *slog.Logger
	locks        *accountLocks
	storeTimeout time.Duration
	signupBonus  int64
	now          func() time.Time
}

// NewService creates a ledger Service from the shared dependencies.
func NewService(deps config.Deps) *Service {
	s := &Service{
		uow:          deps.Uow,
		bus:          deps.EventBus,
		logger:       deps.Logger,
		storeTimeout: 5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
	stripes := 0
	if deps.Config != nil && deps.Config.Ledger != nil {
		if deps.Config.Ledger.StoreTimeout > 0 {
			s.storeTimeout = deps.Config.Ledger.StoreTimeout
		}
		s.signupBonus = deps.Config.Ledger.SignupBonus
		stripes = deps.Config.Ledger.LockStripes
	}
	s.locks = newAccountLocks(stripes)
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// EarnParams describes a credit to an account.
type EarnParams struct {
	UserID      uuid.UUID
	Amount      int64
	Category    transaction.Category
	Description string
	Metadata    map[string]any
	// IdempotencyKey deduplicates replays of the same source event.
	// An empty key disables deduplication.
	IdempotencyKey string
}

// EarnResult is the outcome of Earn.
type EarnResult struct {
	Transaction *transaction.Transaction
	Balance     int64
	Level       int
	LevelUp     bool
	// Duplicate is set when the idempotency key was already used; Transaction
	// is then the original entry and nothing changed.
	Duplicate bool
}

// SpendParams describes a debit for a platform purchase.
type SpendParams struct {
	UserID uuid.UUID
	Amount int64
	// Source becomes the transaction category; defaults to purchase.
	Source      string
	Description string
	Metadata    map[string]any
}

// ConversionDebit describes the credit side of a crypto conversion.
type ConversionDebit struct {
	UserID      uuid.UUID
	Amount      int64
	Description string
	Metadata    map[string]any
}

// ConversionRefund describes the credits returned for a failed conversion.
type ConversionRefund struct {
	UserID       uuid.UUID
	ConversionID uuid.UUID
	Amount       int64
	Reason       string
}

// AttachFunc persists records that must commit together with a balance change.
type AttachFunc func(uow repository.UnitOfWork, tx *transaction.Transaction) error

// OpenAccount provisions the account of userID and credits the signup bonus.
// Calling it again returns the existing account unchanged.
func (s *Service) OpenAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	if userID == uuid.Nil {
		return nil, account.ErrUserIDRequired
	}
	logger := s.logger.With("user_id", userID)

	unlock := s.locks.lock(userID)
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	created := false
	err := s.uow.Do(opCtx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		if _, err := repo.Get(opCtx, userID); err == nil {
			return nil
		} else if !errors.Is(err, account.ErrAccountNotFound) {
			return err
		}
		acc, err := account.New().WithUserID(userID).Build()
		if err != nil {
			return err
		}
		if err := repo.Create(opCtx, acc); err != nil {
			return err
		}
		created = true
		return nil
	})
	cancel()
	unlock()
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		logger.Error("OpenAccount failed", "error", err)
		return nil, err
	}
	if created {
		logger.Info("Account opened")
	}

	// Keyed: granted at most once per account.
	if s.signupBonus > 0 {
		if _, err := s.Earn(ctx, EarnParams{
			UserID:         userID,
			Amount:         s.signupBonus,
			Category:       transaction.CategorySignupBonus,
			Description:    "Welcome bonus",
			IdempotencyKey: string(transaction.CategorySignupBonus),
		}); err != nil {
			logger.Error("OpenAccount failed: signup bonus", "error", err)
			return nil, err
		}
	}
	return s.GetAccount(ctx, userID)
}

// GetAccount returns the account of userID.
func (s *Service) GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, userID)
}

// Earn credits an account. A replayed idempotency key returns the original
// transaction with Duplicate set and changes nothing.
func (s *Service) Earn(ctx context.Context, p EarnParams) (*EarnResult, error) {
	return s.earn(ctx, p, nil)
}

// RefundConversion credits back the amount of a failed conversion and runs
// attach in the same unit of work. The refund is keyed by the conversion id;
// on a replay attach does not run and the result has Duplicate set.
func (s *Service) RefundConversion(
	ctx context.Context,
	r ConversionRefund,
	attach AttachFunc,
) (*EarnResult, error) {
	if r.ConversionID == uuid.Nil {
		return nil, fmt.Errorf("%w: conversion id is required", domain.ErrValidation)
	}
	return s.earn(ctx, EarnParams{
		UserID:         r.UserID,
		Amount:         r.Amount,
		Category:       transaction.CategoryConversionRefund,
		Description:    "Refund for failed conversion",
		Metadata:       map[string]any{"conversion_id": r.ConversionID.String(), "reason": r.Reason},
		IdempotencyKey: transaction.IdempotencyKey(transaction.CategoryConversionRefund, r.ConversionID.String()),
	}, attach)
}

func (s *Service) earn(ctx context.Context, p EarnParams, attach AttachFunc) (*EarnResult, error) {
	if err := account.ValidateAmount(p.Amount); err != nil {
		return nil, err
	}
	if p.UserID == uuid.Nil {
		return nil, account.ErrUserIDRequired
	}
	if strings.TrimSpace(string(p.Category)) == "" {
		return nil, transaction.ErrCategoryRequired
	}
	logger := s.logger.With("user_id", p.UserID, "category", p.Category, "amount", p.Amount)

	unlock := s.locks.lock(p.UserID)
	defer unlock()
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if p.IdempotencyKey != "" {
		if res, err := s.findDuplicate(ctx, p.UserID, p.IdempotencyKey); err != nil || res != nil {
			if res != nil {
				logger.Info("Earn skipped: duplicate idempotency key", "key", p.IdempotencyKey)
			}
			return res, err
		}
	}

	res := &EarnResult{}
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accRepo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}

		balance, err := accRepo.AdjustBalance(ctx, p.UserID, p.Amount)
		if err != nil {
			return err
		}
		tx, err := transaction.New(p.UserID, transaction.TypeEarn, p.Category, p.Amount, p.Metadata)
		if err != nil {
			return err
		}
		tx.Description = p.Description
		tx.IdempotencyKey = p.IdempotencyKey
		tx.CreatedAt = s.now()
		if err := tx.Complete(); err != nil {
			return err
		}
		if err := txRepo.Append(ctx, tx); err != nil {
			return err
		}
		if attach != nil {
			if err := attach(uow, tx); err != nil {
				return fmt.Errorf("attach to earn: %w", err)
			}
		}

		acc, err := accRepo.Get(ctx, p.UserID)
		if err != nil {
			return err
		}
		totals, err := txRepo.Totals(ctx, p.UserID, time.Time{})
		if err != nil {
			return err
		}
		if acc.RaiseLevel(totals.Earned) {
			if err := accRepo.SetLevel(ctx, p.UserID, acc.Level); err != nil {
				return err
			}
			res.LevelUp = true
		}

		res.Transaction = tx
		res.Balance = balance
		res.Level = acc.Level
		return nil
	})
	if err != nil {
		// A concurrent replay from another process won the unique index.
		if errors.Is(err, domain.ErrAlreadyExists) && p.IdempotencyKey != "" {
			dup, derr := s.findDuplicate(ctx, p.UserID, p.IdempotencyKey)
			if derr == nil && dup != nil {
				return dup, nil
			}
		}
		logger.Error("Earn failed", "error", err)
		return nil, err
	}

	logger.Info("Credits earned", "transaction_id", res.Transaction.ID, "balance", res.Balance, "level", res.Level)
	s.emit(ctx, events.CreditsEarned{
		EventID:       uuid.New(),
		UserID:        p.UserID,
		TransactionID: res.Transaction.ID,
		Category:      string(p.Category),
		Amount:        p.Amount,
		Balance:       res.Balance,
		Level:         res.Level,
		LevelUp:       res.LevelUp,
		Timestamp:     res.Transaction.CreatedAt,
	})
	return res, nil
}

func (s *Service) findDuplicate(ctx context.Context, userID uuid.UUID, key string) (*EarnResult, error) {
	txRepo, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	existing, err := txRepo.GetByIdempotencyKey(ctx, userID, key)
	if err != nil || existing == nil {
		return nil, err
	}
	accRepo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	acc, err := accRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &EarnResult{
		Transaction: existing,
		Balance:     acc.CreditBalance,
		Level:       acc.Level,
		Duplicate:   true,
	}, nil
}

// Spend debits an account for a purchase. It returns false with a nil error
// when the balance does not cover the amount; nothing is recorded then.
func (s *Service) Spend(ctx context.Context, p SpendParams) (bool, error) {
	if err := account.ValidateAmount(p.Amount); err != nil {
		return false, err
	}
	category := transaction.Category(strings.TrimSpace(p.Source))
	if category == "" {
		category = DefaultSpendSource
	}
	logger := s.logger.With("user_id", p.UserID, "source", category, "amount", p.Amount)

	tx, balance, err := s.debit(ctx, p.UserID, transaction.TypeSpend, category, p.Amount, p.Description, p.Metadata, nil)
	if errors.Is(err, account.ErrInsufficientCredits) {
		logger.Info("Spend rejected: insufficient credits")
		return false, nil
	}
	if err != nil {
		logger.Error("Spend failed", "error", err)
		return false, err
	}
	logger.Info("Credits spent", "transaction_id", tx.ID, "balance", balance)
	return true, nil
}

// DebitForConversion debits the conversion amount and runs attach in the
// same unit of work. Unlike Spend, an uncovered amount is an error
// (account.ErrInsufficientCredits).
func (s *Service) DebitForConversion(
	ctx context.Context,
	d ConversionDebit,
	attach AttachFunc,
) (*transaction.Transaction, int64, error) {
	if err := account.ValidateAmount(d.Amount); err != nil {
		return nil, 0, err
	}
	tx, balance, err := s.debit(
		ctx,
		d.UserID,
		transaction.TypeConvert,
		transaction.CategoryCryptoConversion,
		d.Amount,
		d.Description,
		d.Metadata,
		attach,
	)
	if err != nil {
		s.logger.Warn("Conversion debit failed", "user_id", d.UserID, "amount", d.Amount, "error", err)
		return nil, 0, err
	}
	return tx, balance, nil
}

func (s *Service) debit(
	ctx context.Context,
	userID uuid.UUID,
	txType transaction.Type,
	category transaction.Category,
	amount int64,
	description string,
	metadata map[string]any,
	attach AttachFunc,
) (*transaction.Transaction, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, account.ErrUserIDRequired
	}
	unlock := s.locks.lock(userID)
	defer unlock()
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var (
		tx      *transaction.Transaction
		balance int64
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accRepo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		balance, err = accRepo.AdjustBalance(ctx, userID, -amount)
		if err != nil {
			return err
		}
		tx, err = transaction.New(userID, txType, category, amount, metadata)
		if err != nil {
			return err
		}
		tx.Description = description
		tx.CreatedAt = s.now()
		if err := tx.Complete(); err != nil {
			return err
		}
		if err := txRepo.Append(ctx, tx); err != nil {
			return err
		}
		if attach != nil {
			if err := attach(uow, tx); err != nil {
				return fmt.Errorf("attach to debit: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.emit(ctx, events.CreditsSpent{
		EventID:       uuid.New(),
		UserID:        userID,
		TransactionID: tx.ID,
		Category:      string(category),
		Amount:        amount,
		Balance:       balance,
		Timestamp:     tx.CreatedAt,
	})
	return tx, balance, nil
}

// GetUserTransactions returns the history of userID, newest first.
// limit defaults to DefaultHistoryLimit and is capped at MaxHistoryLimit.
func (s *Service) GetUserTransactions(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*transaction.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if _, err := s.getAccount(ctx, userID); err != nil {
		return nil, err
	}
	txRepo, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	return txRepo.ListByUser(ctx, userID, limit, offset)
}

// GetUserEarningStats aggregates the completed transactions of userID.
func (s *Service) GetUserEarningStats(ctx context.Context, userID uuid.UUID) (*transaction.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	acc, err := s.getAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	txRepo, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	all, err := txRepo.Totals(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	weekly, err := txRepo.Totals(ctx, userID, s.now().Add(-weeklyWindow))
	if err != nil {
		return nil, err
	}
	return &transaction.Stats{
		Balance:        acc.CreditBalance,
		Level:          acc.Level,
		TotalEarned:    all.Earned,
		TotalSpent:     all.Spent,
		WeeklyEarnings: weekly.Earned,
	}, nil
}

func (s *Service) getAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, userID)
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("Failed to publish event", "type", e.Type(), "error", err)
	}
}
