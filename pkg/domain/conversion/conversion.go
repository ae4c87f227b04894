// Package conversion models requests to exchange credits for an external cryptocurrency.
//
// A request snapshots the conversion rate at creation time. Settlement happens
// out of band; the settlement worker moves a request from pending to confirmed
// or failed exactly once.
package conversion

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrBelowMinimum is returned when the credits amount is under the conversion threshold.
	ErrBelowMinimum = errors.New("credits amount is below the conversion minimum")
	// ErrUnsupportedCurrency is returned when the crypto type has no rate.
	ErrUnsupportedCurrency = errors.New("unsupported crypto currency")
	// ErrInvalidAddress is returned for a malformed wallet address.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrConversionNotFound is returned when no conversion request matches the id.
	ErrConversionNotFound = errors.New("conversion request not found")
	// ErrInvalidStatusTransition is returned when settling a request that is no longer pending.
	ErrInvalidStatusTransition = errors.New("conversion request is not pending")
)

// DefaultMinCredits is the smallest convertible credits amount (inclusive).
const DefaultMinCredits int64 = 100

// CryptoType is the ticker of a supported cryptocurrency.
type CryptoType string

const (
	BTC  CryptoType = "BTC"
	ETH  CryptoType = "ETH"
	USDT CryptoType = "USDT"
	BNB  CryptoType = "BNB"
)

// Normalize upper-cases and trims a ticker.
func Normalize(s string) CryptoType {
	return CryptoType(strings.ToUpper(strings.TrimSpace(s)))
}

// Status is the settlement state of a request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Request is a pending or settled credits-to-crypto conversion.
type Request struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	TransactionID  uuid.UUID
	CreditsAmount  int64
	CryptoType     CryptoType
	ConversionRate decimal.Decimal
	CryptoAmount   decimal.Decimal
	WalletAddress  string
	Status         Status
	TxHash         string
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Quote is the validated input of a conversion, before any credits move.
type Quote struct {
	UserID        uuid.UUID
	CreditsAmount int64
	CryptoType    CryptoType
	Rate          decimal.Decimal
	WalletAddress string
}

// NewQuote validates a conversion in the documented order: minimum,
// currency, then wallet address. The returned address is EIP-55 checksummed.
func NewQuote(
	userID uuid.UUID,
	creditsAmount int64,
	cryptoType CryptoType,
	walletAddress string,
	rates RateTable,
	minCredits int64,
) (*Quote, error) {
	if minCredits <= 0 {
		minCredits = DefaultMinCredits
	}
	if creditsAmount < minCredits {
		return nil, ErrBelowMinimum
	}
	rate, ok := rates.Rate(cryptoType)
	if !ok {
		return nil, ErrUnsupportedCurrency
	}
	if err := ValidateAddress(walletAddress); err != nil {
		return nil, err
	}
	return &Quote{
		UserID:        userID,
		CreditsAmount: creditsAmount,
		CryptoType:    cryptoType,
		Rate:          rate,
		WalletAddress: ChecksumAddress(walletAddress),
	}, nil
}

// CryptoAmount is credits multiplied by the snapshotted rate.
func (q *Quote) CryptoAmount() decimal.Decimal {
	return decimal.NewFromInt(q.CreditsAmount).Mul(q.Rate)
}

// NewRequest turns a quote into a pending request bound to its debit transaction.
func NewRequest(q *Quote, debitTxID uuid.UUID) *Request {
	now := time.Now().UTC()
	return &Request{
		ID:             uuid.New(),
		UserID:         q.UserID,
		TransactionID:  debitTxID,
		CreditsAmount:  q.CreditsAmount,
		CryptoType:     q.CryptoType,
		ConversionRate: q.Rate,
		CryptoAmount:   q.CryptoAmount(),
		WalletAddress:  q.WalletAddress,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Confirm records a successful on-chain transfer.
func (r *Request) Confirm(txHash string) error {
	if r.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusConfirmed
	r.TxHash = txHash
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail records a failed settlement.
func (r *Request) Fail(reason string) error {
	if r.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusFailed
	r.FailureReason = reason
	r.UpdatedAt = time.Now().UTC()
	return nil
}
