// Package conversion turns credits into pending crypto payouts and records
// their settlement. Credits leave the account in the same unit of work that
// stores the request; a failed settlement refunds them.
package conversion

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
	"github.com/kaushal/skillcredits/pkg/domain/conversion"
	"github.com/kaushal/skillcredits/pkg/domain/events"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
	"github.com/kaushal/skillcredits/pkg/eventbus"
	"github.com/kaushal/skillcredits/pkg/repository"
	"github.com/kaushal/skillcredits/pkg/service/ledger"
)

const (
	DefaultPendingLimit = 50
	MaxPendingLimit     = 500
)

// ErrTxHashRequired is returned when confirming without an on-chain hash.
var ErrTxHashRequired = errors.New("transaction hash is required")

// Ledger is the part of the transaction engine conversions use.
type Ledger interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error)
	DebitForConversion(
		ctx context.Context,
		d ledger.ConversionDebit,
		attach ledger.AttachFunc,
	) (*transaction.Transaction, int64, error)
	RefundConversion(
		ctx context.Context,
		r ledger.ConversionRefund,
		attach ledger.AttachFunc,
	) (*ledger.EarnResult, error)
}

// Service handles conversion requests and their settlement.
type Service struct {
	uow          repository.UnitOfWork
	ledger       Ledger
	rates        RateProvider
	bus          eventbus.Bus
	logger       *slog.Logger
	minCredits   int64
	storeTimeout time.Duration
}

// NewService creates a conversion Service.
func NewService(deps config.Deps, l Ledger, rates RateProvider) *Service {
	s := &Service{
		uow:          deps.Uow,
		ledger:       l,
		rates:        rates,
		bus:          deps.EventBus,
		logger:       deps.Logger,
		minCredits:   conversion.DefaultMinCredits,
		storeTimeout: 5 * time.Second,
	}
	if deps.Config != nil {
		if c := deps.Config.Conversion; c != nil && c.MinCredits > 0 {
			s.minCredits = c.MinCredits
		}
		if lc := deps.Config.Ledger; lc != nil && lc.StoreTimeout > 0 {
			s.storeTimeout = lc.StoreTimeout
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.rates == nil {
		s.rates = NewStaticRates(nil)
	}
	return s
}

// MinCredits is the smallest convertible amount.
func (s *Service) MinCredits() int64 { return s.minCredits }

// Rates returns the current rate table.
func (s *Service) Rates(ctx context.Context) (conversion.RateTable, error) {
	return s.rates.Rates(ctx)
}

// UpdateRates stores new rates for the given tickers.
func (s *Service) UpdateRates(ctx context.Context, rates map[string]string) (conversion.RateTable, error) {
	table, err := conversion.RatesFromStrings(rates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: no rates given", domain.ErrValidation)
	}
	if err := s.rates.SetRates(ctx, table); err != nil {
		return nil, err
	}
	s.logger.Info("Conversion rates updated", "rates", table.Strings())
	return s.rates.Rates(ctx)
}

// RequestConversion validates, debits the credits and records a pending request.
// Checks run in order: minimum, currency, wallet address, balance. The debit,
// not the balance pre-check, decides under concurrency.
func (s *Service) RequestConversion(
	ctx context.Context,
	userID uuid.UUID,
	creditsAmount int64,
	cryptoType string,
	walletAddress string,
) (*conversion.Request, error) {
	logger := s.logger.With("user_id", userID, "credits", creditsAmount, "crypto", cryptoType)

	rates, err := s.rates.Rates(ctx)
	if err != nil {
		logger.Error("RequestConversion failed: rates unavailable", "error", err)
		return nil, err
	}
	quote, err := conversion.NewQuote(
		userID,
		creditsAmount,
		conversion.Normalize(cryptoType),
		strings.TrimSpace(walletAddress),
		rates,
		s.minCredits,
	)
	if err != nil {
		logger.Info("RequestConversion rejected", "error", err)
		return nil, err
	}

	acc, err := s.ledger.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !acc.CanSpend(creditsAmount) {
		logger.Info("RequestConversion rejected: insufficient credits", "balance", acc.CreditBalance)
		return nil, account.ErrInsufficientCredits
	}

	var req *conversion.Request
	_, balance, err := s.ledger.DebitForConversion(ctx, ledger.ConversionDebit{
		UserID:      userID,
		Amount:      creditsAmount,
		Description: fmt.Sprintf("Convert %d credits to %s", creditsAmount, quote.CryptoType),
		Metadata: map[string]any{
			"crypto_type":    string(quote.CryptoType),
			"rate":           quote.Rate.String(),
			"wallet_address": quote.WalletAddress,
		},
	}, func(uow repository.UnitOfWork, tx *transaction.Transaction) error {
		repo, err := uow.ConversionRepository()
		if err != nil {
			return err
		}
		req = conversion.NewRequest(quote, tx.ID)
		return repo.Create(ctx, req)
	})
	if err != nil {
		logger.Warn("RequestConversion failed", "error", err)
		return nil, err
	}

	logger.Info("Conversion requested",
		"conversion_id", req.ID,
		"crypto_amount", req.CryptoAmount.String(),
		"balance", balance,
	)
	s.emit(ctx, events.ConversionRequested{
		EventID:       uuid.New(),
		ConversionID:  req.ID,
		UserID:        userID,
		CreditsAmount: req.CreditsAmount,
		CryptoType:    string(req.CryptoType),
		CryptoAmount:  req.CryptoAmount.String(),
		Rate:          req.ConversionRate.String(),
		WalletAddress: req.WalletAddress,
		Timestamp:     req.CreatedAt,
	})
	return req, nil
}

// GetConversionStatus returns a request by id.
func (s *Service) GetConversionStatus(ctx context.Context, id uuid.UUID) (*conversion.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	repo, err := s.uow.ConversionRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// ListPending returns pending requests, oldest first, for the settlement worker.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*conversion.Request, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	limit = min(limit, MaxPendingLimit)
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	repo, err := s.uow.ConversionRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListByStatus(ctx, conversion.StatusPending, limit)
}

// ConfirmConversion marks a pending request as paid out on chain.
func (s *Service) ConfirmConversion(ctx context.Context, id uuid.UUID, txHash string) (*conversion.Request, error) {
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		return nil, ErrTxHashRequired
	}
	req, err := s.settle(ctx, id, func(r *conversion.Request) error {
		return r.Confirm(txHash)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Conversion confirmed", "conversion_id", id, "tx_hash", txHash)
	return req, nil
}

// FailConversion marks a pending request as failed and refunds its credits
// in one unit of work. Failing an already failed request returns it unchanged.
func (s *Service) FailConversion(ctx context.Context, id uuid.UUID, reason string) (*conversion.Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "settlement failed"
	}
	current, err := s.GetConversionStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case conversion.StatusFailed:
		return current, nil
	case conversion.StatusPending:
	default:
		return nil, conversion.ErrInvalidStatusTransition
	}

	fail := func(r *conversion.Request) error { return r.Fail(reason) }
	var req *conversion.Request
	res, err := s.ledger.RefundConversion(ctx, ledger.ConversionRefund{
		UserID:       current.UserID,
		ConversionID: current.ID,
		Amount:       current.CreditsAmount,
		Reason:       reason,
	}, func(uow repository.UnitOfWork, _ *transaction.Transaction) error {
		var err error
		req, err = s.transition(ctx, uow, id, fail)
		return err
	})
	if err != nil {
		// Another settlement call may have won the pending row.
		if errors.Is(err, conversion.ErrInvalidStatusTransition) {
			if latest, gerr := s.GetConversionStatus(ctx, id); gerr == nil && latest.Status == conversion.StatusFailed {
				return latest, nil
			}
		}
		s.logger.Error("Conversion failure not recorded", "conversion_id", id, "error", err)
		return nil, fmt.Errorf("fail conversion %s: %w", id, err)
	}
	if res.Duplicate {
		// The refund is already booked; only the status is missing.
		return s.settle(ctx, id, fail)
	}

	s.emitSettled(ctx, req)
	s.logger.Info("Conversion failed and refunded", "conversion_id", id, "reason", reason)
	return req, nil
}

func (s *Service) settle(
	ctx context.Context,
	id uuid.UUID,
	transition func(*conversion.Request) error,
) (*conversion.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var req *conversion.Request
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		req, err = s.transition(ctx, uow, id, transition)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitSettled(ctx, req)
	return req, nil
}

// transition loads the request inside uow, applies fn and stores the new status.
func (s *Service) transition(
	ctx context.Context,
	uow repository.UnitOfWork,
	id uuid.UUID,
	fn func(*conversion.Request) error,
) (*conversion.Request, error) {
	repo, err := uow.ConversionRepository()
	if err != nil {
		return nil, err
	}
	req, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(req); err != nil {
		return nil, err
	}
	if err := repo.UpdateStatus(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) emitSettled(ctx context.Context, req *conversion.Request) {
	s.emit(ctx, events.ConversionSettled{
		EventID:      uuid.New(),
		ConversionID: req.ID,
		UserID:       req.UserID,
		Status:       string(req.Status),
		TxHash:       req.TxHash,
		Reason:       req.FailureReason,
		Timestamp:    req.UpdatedAt,
	})
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("Failed to publish event", "type", e.Type(), "error", err)
	}
}
