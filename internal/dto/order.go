// Package dto defines the wire representations returned by the HTTP layer.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nilemart/backend/internal/entity"
)

// OrderResponse is the wire form of an order.
type OrderResponse struct {
	ID                int64               `json:"id"`
	Number            string              `json:"number"`
	Currency          string              `json:"currency"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"payment_status"`
	FulfillmentStatus string              `json:"fulfillment_status"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	ShippingTotal     decimal.Decimal     `json:"shipping_total"`
	TaxTotal          decimal.Decimal     `json:"tax_total"`
	Total             decimal.Decimal     `json:"total"`
	PlacedAt          time.Time           `json:"placed_at"`
	Items             []OrderItemResponse `json:"items,omitempty"`
}

// OrderItemResponse is the wire form of an order line.
type OrderItemResponse struct {
	VariantID   int64           `json:"variant_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// PaymentIntentResponse carries the provider handle a client needs to
// complete payment. Absent for cash-on-delivery.
type PaymentIntentResponse struct {
	Provider     string `json:"provider"`
	Reference    string `json:"reference"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// FromOrder maps an order entity to its wire form.
func FromOrder(order *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:                order.ID,
		Number:            order.Number,
		Currency:          order.Currency,
		Status:            string(order.Status),
		PaymentStatus:     string(order.PaymentStatus),
		FulfillmentStatus: string(order.FulfillmentStatus),
		Subtotal:          order.Subtotal,
		ShippingTotal:     order.ShippingTotal,
		TaxTotal:          order.TaxTotal,
		Total:             order.Total,
		PlacedAt:          order.PlacedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return resp
}
