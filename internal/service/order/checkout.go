package order

import (
	"github.com/shopspring/decimal"

	"github.com/nilemart/backend/internal/entity"
)

// Line failure reasons reported back to the caller, one per offending cart line.
const (
	FailureVariantNotFound   = "VARIANT_NOT_FOUND"
	FailureVariantInactive   = "VARIANT_INACTIVE"
	FailureInsufficientStock = "INSUFFICIENT_STOCK"
	FailurePriceUnavailable  = "PRICE_UNAVAILABLE"
	FailureInvalidQuantity   = "INVALID_QUANTITY"
)

// LineFailure describes why a single cart line cannot become an order item.
type LineFailure struct {
	VariantID int64  `json:"variant_id"`
	Reason    string `json:"reason"`
}

// buildLines validates every cart line against the live variants and prices
// each one in the requested currency. It is pure: all failures are collected
// and returned together, and nothing is mutated. The stock check here is only
// an early rejection; the authoritative check is the conditional decrement at
// reservation time.
func buildLines(items []*entity.CartItem, variants map[int64]*entity.Variant, currency string) ([]*entity.OrderItem, decimal.Decimal, []LineFailure) {
	var (
		lines    []*entity.OrderItem
		subtotal decimal.Decimal
		failures []LineFailure
	)

	for _, item := range items {
		if item.Quantity <= 0 {
			failures = append(failures, LineFailure{VariantID: item.VariantID, Reason: FailureInvalidQuantity})
			continue
		}
		variant, ok := variants[item.VariantID]
		if !ok {
			failures = append(failures, LineFailure{VariantID: item.VariantID, Reason: FailureVariantNotFound})
			continue
		}
		if !variant.Active {
			failures = append(failures, LineFailure{VariantID: item.VariantID, Reason: FailureVariantInactive})
			continue
		}
		if variant.StockOnHand < item.Quantity {
			failures = append(failures, LineFailure{VariantID: item.VariantID, Reason: FailureInsufficientStock})
			continue
		}
		price, ok := variant.PriceFor(currency)
		if !ok {
			failures = append(failures, LineFailure{VariantID: item.VariantID, Reason: FailurePriceUnavailable})
			continue
		}

		lines = append(lines, &entity.OrderItem{
			VariantID:   variant.ID,
			ProductName: variant.ProductName,
			SKU:         variant.SKU,
			UnitPrice:   price,
			Quantity:    item.Quantity,
		})
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return lines, subtotal, failures
}

func anyInsufficientStock(failures []LineFailure) bool {
	for _, f := range failures {
		if f.Reason == FailureInsufficientStock {
			return true
		}
	}
	return false
}
