package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order represents a placed purchase order. Once persisted, only the three
// status fields and the soft-delete timestamp ever change; line items, amounts
// and currency are an immutable historical record.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                int64             `bun:",pk,autoincrement"`
	Number            string            `bun:"number"`
	CustomerID        int64             `bun:"customer_id"`
	Currency          string            `bun:"currency"`
	Status            OrderStatus       `bun:"status"`
	PaymentStatus     PaymentStatus     `bun:"payment_status"`
	FulfillmentStatus FulfillmentStatus `bun:"fulfillment_status"`
	BillingAddressID  int64             `bun:"billing_address_id"`
	ShippingAddressID int64             `bun:"shipping_address_id"`
	Subtotal          decimal.Decimal   `bun:"subtotal,type:numeric(12,2)"`
	ShippingTotal     decimal.Decimal   `bun:"shipping_total,type:numeric(12,2)"`
	TaxTotal          decimal.Decimal   `bun:"tax_total,type:numeric(12,2)"`
	Total             decimal.Decimal   `bun:"total,type:numeric(12,2)"`
	PlacedAt          time.Time         `bun:"placed_at,nullzero"`
	CreatedAt         time.Time         `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time         `bun:"updated_at,nullzero"`
	DeletedAt         time.Time         `bun:"deleted_at,soft_delete,nullzero"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// OrderItem is a line of an order. Product name, SKU and unit price are
// snapshotted at order time and never re-derived from the live catalog.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID          int64           `bun:",pk,autoincrement"`
	OrderID     int64           `bun:"order_id"`
	VariantID   int64           `bun:"variant_id"`
	ProductName string          `bun:"product_name"`
	SKU         string          `bun:"sku"`
	UnitPrice   decimal.Decimal `bun:"unit_price,type:numeric(12,2)"`
	Quantity    int             `bun:"quantity"`
}
