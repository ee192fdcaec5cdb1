package entity

import "github.com/uptrace/bun"

// OrderSequence is the per-year atomic counter backing order number
// allocation. One row per calendar year, incremented inside the order
// creation transaction.
type OrderSequence struct {
	bun.BaseModel `bun:"table:order_sequences"`

	Year  int   `bun:"year,pk"`
	Value int64 `bun:"value"`
}
