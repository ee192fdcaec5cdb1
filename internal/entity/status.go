package entity

import "fmt"

// OrderStatus is the primary lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch s := OrderStatus(raw); s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return s, nil
	default:
		return "", fmt.Errorf("unknown order status %q", raw)
	}
}

// PaymentStatus tracks the financial state of an order, independent of fulfillment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// ParsePaymentStatus validates a raw payment status value.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch s := PaymentStatus(raw); s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return s, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
}

// FulfillmentStatus tracks physical delivery progress.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "PENDING"
	FulfillmentShipped   FulfillmentStatus = "SHIPPED"
	FulfillmentDelivered FulfillmentStatus = "DELIVERED"
)

// ParseFulfillmentStatus validates a raw fulfillment status value.
func ParseFulfillmentStatus(raw string) (FulfillmentStatus, error) {
	switch s := FulfillmentStatus(raw); s {
	case FulfillmentPending, FulfillmentShipped, FulfillmentDelivered:
		return s, nil
	default:
		return "", fmt.Errorf("unknown fulfillment status %q", raw)
	}
}

// PaymentMethod identifies how a payment was (or will be) collected.
type PaymentMethod string

const (
	MethodCard           PaymentMethod = "CARD"
	MethodWallet         PaymentMethod = "WALLET"
	MethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)
