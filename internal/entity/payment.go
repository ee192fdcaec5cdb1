package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Payment is an append-only record of a payment attempt against an order.
// The (provider, provider_ref) pair is unique and acts as the idempotency key
// for webhook ingestion; corrections are new rows, never edits.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID          int64           `bun:",pk,autoincrement"`
	OrderID     int64           `bun:"order_id"`
	Provider    string          `bun:"provider"`
	ProviderRef string          `bun:"provider_ref"`
	Amount      decimal.Decimal `bun:"amount,type:numeric(12,2)"`
	Currency    string          `bun:"currency"`
	Status      PaymentStatus   `bun:"status"`
	Method      PaymentMethod   `bun:"method"`
	CapturedAt  time.Time       `bun:"captured_at,nullzero"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
