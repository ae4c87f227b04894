package conversion

import (
	"time"

	"github.com/kaushal/skillcredits/pkg/domain/conversion"
)

//revive:disable

// CreateRequest is the body of POST /conversions. Its fields are checked by
// the service, in order: minimum, currency, wallet address.
type CreateRequest struct {
	CreditsAmount int64  `json:"credits_amount"`
	CryptoType    string `json:"crypto_type"`
	WalletAddress string `json:"wallet_address"`
}

// ConfirmRequest is the body of POST /internal/conversions/:id/confirm.
type ConfirmRequest struct {
	TxHash string `json:"tx_hash" validate:"required,max=128"`
}

// FailRequest is the body of POST /internal/conversions/:id/fail.
type FailRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// UpdateRatesRequest is the body of PUT /internal/conversions/rates.
type UpdateRatesRequest struct {
	Rates map[string]string `json:"rates" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// RatesResponse lists the crypto a credit currently buys.
type RatesResponse struct {
	Rates      map[string]string `json:"rates"`
	MinCredits int64             `json:"min_credits"`
}

// RequestDTO is the API view of a conversion request.
type RequestDTO struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	TransactionID  string    `json:"transaction_id"`
	CreditsAmount  int64     `json:"credits_amount"`
	CryptoType     string    `json:"crypto_type"`
	ConversionRate string    `json:"conversion_rate"`
	CryptoAmount   string    `json:"crypto_amount"`
	WalletAddress  string    `json:"wallet_address"`
	Status         string    `json:"status"`
	TxHash         string    `json:"tx_hash,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func ToRequestDTO(r *conversion.Request) RequestDTO {
	return RequestDTO{
		ID:             r.ID.String(),
		UserID:         r.UserID.String(),
		TransactionID:  r.TransactionID.String(),
		CreditsAmount:  r.CreditsAmount,
		CryptoType:     string(r.CryptoType),
		ConversionRate: r.ConversionRate.String(),
		CryptoAmount:   r.CryptoAmount.String(),
		WalletAddress:  r.WalletAddress,
		Status:         string(r.Status),
		TxHash:         r.TxHash,
		FailureReason:  r.FailureReason,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toRequestDTOs(reqs []*conversion.Request) []RequestDTO {
	out := make([]RequestDTO, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, ToRequestDTO(r))
	}
	return out
}
