package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Cart holds a customer's pending selection. The order core reads and clears
// carts; item add/remove/update is owned by the cart collaborator.
type Cart struct {
	bun.BaseModel `bun:"table:carts"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	CustomerID int64     `bun:"customer_id"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero"`

	Items []*CartItem `bun:"rel:has-many,join:id=cart_id"`
}

// CartItem references a variant plus a cached copy of its name and SKU taken
// at add-to-cart time. Checkout re-resolves the live variant and never trusts
// these cached fields for pricing or stock.
type CartItem struct {
	bun.BaseModel `bun:"table:cart_items"`

	ID          int64     `bun:",pk,autoincrement"`
	CartID      uuid.UUID `bun:"cart_id,type:uuid"`
	VariantID   int64     `bun:"variant_id"`
	SKU         string    `bun:"sku"`
	ProductName string    `bun:"product_name"`
	Quantity    int       `bun:"quantity"`
}
