package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Variant is a purchasable configuration of a product. StockOnHand is the only
// long-lived mutable shared value in the order core; it must never go negative.
type Variant struct {
	bun.BaseModel `bun:"table:variants"`

	ID          int64     `bun:",pk,autoincrement"`
	ProductID   int64     `bun:"product_id"`
	SKU         string    `bun:"sku"`
	ProductName string    `bun:"product_name"`
	Active      bool      `bun:"active"`
	StockOnHand int       `bun:"stock_on_hand"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero"`

	Prices []*VariantPrice `bun:"rel:has-many,join:id=variant_id"`
}

// PriceFor returns the variant's price in the requested currency.
func (v *Variant) PriceFor(currency string) (decimal.Decimal, bool) {
	for _, p := range v.Prices {
		if p.Currency == currency {
			return p.Amount, true
		}
	}
	return decimal.Decimal{}, false
}

// VariantPrice is a per-currency price entry for a variant.
type VariantPrice struct {
	bun.BaseModel `bun:"table:variant_prices"`

	ID        int64           `bun:",pk,autoincrement"`
	VariantID int64           `bun:"variant_id"`
	Currency  string          `bun:"currency"`
	Amount    decimal.Decimal `bun:"amount,type:numeric(12,2)"`
}
