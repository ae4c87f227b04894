// Package events defines the domain events published after ledger mutations commit.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	Type() string
}

const (
	TypeCreditsEarned       = "CreditsEarned"
	TypeCreditsSpent        = "CreditsSpent"
	TypeConversionRequested = "ConversionRequested"
	TypeConversionSettled   = "ConversionSettled"
)

// CreditsEarned is published after an earn transaction commits.
type CreditsEarned struct {
	EventID       uuid.UUID `json:"event_id"`
	UserID        uuid.UUID `json:"user_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Category      string    `json:"category"`
	Amount        int64     `json:"amount"`
	Balance       int64     `json:"balance"`
	Level         int       `json:"level"`
	LevelUp       bool      `json:"level_up"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e CreditsEarned) Type() string { return TypeCreditsEarned }

// CreditsSpent is published after a spend or convert debit commits.
type CreditsSpent struct {
	EventID       uuid.UUID `json:"event_id"`
	UserID        uuid.UUID `json:"user_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Category      string    `json:"category"`
	Amount        int64     `json:"amount"`
	Balance       int64     `json:"balance"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e CreditsSpent) Type() string { return TypeCreditsSpent }

// ConversionRequested is consumed by the external settlement worker.
type ConversionRequested struct {
	EventID       uuid.UUID `json:"event_id"`
	ConversionID  uuid.UUID `json:"conversion_id"`
	UserID        uuid.UUID `json:"user_id"`
	CreditsAmount int64     `json:"credits_amount"`
	CryptoType    string    `json:"crypto_type"`
	CryptoAmount  string    `json:"crypto_amount"`
	Rate          string    `json:"rate"`
	WalletAddress string    `json:"wallet_address"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ConversionRequested) Type() string { return TypeConversionRequested }

// ConversionSettled is published when a request reaches a terminal status.
type ConversionSettled struct {
	EventID      uuid.UUID `json:"event_id"`
	ConversionID uuid.UUID `json:"conversion_id"`
	UserID       uuid.UUID `json:"user_id"`
	Status       string    `json:"status"`
	TxHash       string    `json:"tx_hash,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e ConversionSettled) Type() string { return TypeConversionSettled }
