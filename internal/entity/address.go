package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Address is a customer-owned billing or shipping address. The order core only
// resolves addresses scoped to the requesting customer; CRUD lives elsewhere.
type Address struct {
	bun.BaseModel `bun:"table:addresses"`

	ID         int64     `bun:",pk,autoincrement"`
	CustomerID int64     `bun:"customer_id"`
	Label      string    `bun:"label"`
	Line1      string    `bun:"line1"`
	Line2      string    `bun:"line2"`
	City       string    `bun:"city"`
	Country    string    `bun:"country"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
