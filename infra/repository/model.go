package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the accounts row, one per user.
type Account struct {
	UserID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CreditBalance       int64           `gorm:"not null;default:0;check:chk_accounts_credit_balance,credit_balance >= 0"`
	Level               int             `gorm:"not null;default:1"`
	KaushalTokenBalance decimal.Decimal `gorm:"type:numeric(36,18);not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// Transaction is an append-only ledger row. Seq records insertion order.
type Transaction struct {
	Seq            int64          `gorm:"primaryKey;autoIncrement"`
	ID             uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_transactions_user_created,priority:1;uniqueIndex:idx_transactions_user_idempotency,priority:1"`
	Type           string         `gorm:"type:varchar(16);not null"`
	Category       string         `gorm:"type:varchar(64);not null"`
	Amount         int64          `gorm:"not null"`
	Status         string         `gorm:"type:varchar(16);not null;default:'completed'"`
	Description    string         `gorm:"type:varchar(255)"`
	Metadata       map[string]any `gorm:"type:text;serializer:json"`
	IdempotencyKey *string        `gorm:"type:varchar(128);uniqueIndex:idx_transactions_user_idempotency,priority:2"`
	CreatedAt      time.Time      `gorm:"not null;index:idx_transactions_user_created,priority:2"`
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string {
	return "transactions"
}

// ConversionRequest is a conversion_requests row. TransactionID references the debit transaction.
type ConversionRequest struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	TransactionID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	CreditsAmount  int64           `gorm:"not null"`
	CryptoType     string          `gorm:"type:varchar(16);not null"`
	ConversionRate decimal.Decimal `gorm:"type:numeric(36,18);not null"`
	CryptoAmount   decimal.Decimal `gorm:"type:numeric(36,18);not null"`
	WalletAddress  string          `gorm:"type:varchar(42);not null"`
	Status         string          `gorm:"type:varchar(16);not null;index"`
	TxHash         string          `gorm:"type:varchar(128)"`
	FailureReason  string          `gorm:"type:varchar(255)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for the ConversionRequest model.
func (ConversionRequest) TableName() string {
	return "conversion_requests"
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&Account{}, &Transaction{}, &ConversionRequest{}}
}
