package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nilemart/backend/internal/entity"
)

// PaymentResponse is the wire form of a payment ledger row.
type PaymentResponse struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	Provider    string          `json:"provider"`
	ProviderRef string          `json:"provider_ref"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Method      string          `json:"method"`
	CapturedAt  time.Time       `json:"captured_at,omitempty"`
}

// FromPayment maps a payment entity to its wire form.
func FromPayment(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Provider:    p.Provider,
		ProviderRef: p.ProviderRef,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      string(p.Status),
		Method:      string(p.Method),
		CapturedAt:  p.CapturedAt,
	}
}
