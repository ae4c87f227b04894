package credits

import (
	"time"

	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
)

//revive:disable

// SpendRequest is the body of POST /credits/spend.
type SpendRequest struct {
	Amount      int64          `json:"amount" validate:"required,gt=0,lte=1000000000"`
	Source      string         `json:"source" validate:"omitempty,min=2,max=64"`
	Description string         `json:"description" validate:"omitempty,max=255"`
	Metadata    map[string]any `json:"metadata"`
}

// AccountDTO is the API view of a credit wallet.
type AccountDTO struct {
	UserID              string    `json:"user_id"`
	CreditBalance       int64     `json:"credit_balance"`
	Level               int       `json:"level"`
	KaushalTokenBalance string    `json:"kaushal_token_balance"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TransactionDTO is the API view of a ledger entry.
type TransactionDTO struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Category    string         `json:"category"`
	Amount      int64          `json:"amount"`
	Status      string         `json:"status"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TransactionsResponse is a page of the caller's history.
type TransactionsResponse struct {
	Transactions []TransactionDTO `json:"transactions"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
}

// SpendResponse reports the outcome of a spend.
type SpendResponse struct {
	Success bool  `json:"success"`
	Balance int64 `json:"balance"`
}

func ToAccountDTO(a *account.Account) AccountDTO {
	return AccountDTO{
		UserID:              a.UserID.String(),
		CreditBalance:       a.CreditBalance,
		Level:               a.Level,
		KaushalTokenBalance: a.KaushalTokenBalance.String(),
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func ToTransactionDTO(tx *transaction.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID.String(),
		Type:        string(tx.Type),
		Category:    string(tx.Category),
		Amount:      tx.Amount,
		Status:      string(tx.Status),
		Description: tx.Description,
		Metadata:    tx.Metadata,
		CreatedAt:   tx.CreatedAt,
	}
}
