// Package status validates transitions of the three coupled order state
// machines (order / payment / fulfillment) and applies the one-directional
// promotion rules between them. The transition tables are data so the whole
// surface can be unit-tested exhaustively.
package status

import (
	"errors"
	"fmt"

	"github.com/nilemart/backend/internal/entity"
)

// ErrInvalidTransition marks a disallowed status change.
var ErrInvalidTransition = errors.New("invalid status transition")

var orderTransitions = map[entity.OrderStatus]map[entity.OrderStatus]bool{
	entity.OrderPending: {
		entity.OrderProcessing: true,
		entity.OrderShipped:    true,
		entity.OrderDelivered:  true,
		entity.OrderCancelled:  true,
	},
	entity.OrderProcessing: {
		entity.OrderShipped:   true,
		entity.OrderDelivered: true,
		entity.OrderCancelled: true,
	},
	entity.OrderShipped: {
		entity.OrderDelivered: true,
	},
	// DELIVERED may only move to REFUNDED.
	entity.OrderDelivered: {
		entity.OrderRefunded: true,
	},
	// CANCELLED and REFUNDED accept no further transitions.
	entity.OrderCancelled: {},
	entity.OrderRefunded:  {},
}

var paymentTransitions = map[entity.PaymentStatus]map[entity.PaymentStatus]bool{
	entity.PaymentPending: {
		entity.PaymentPaid:     true,
		entity.PaymentFailed:   true,
		entity.PaymentRefunded: true,
	},
	entity.PaymentPaid: {
		entity.PaymentRefunded: true,
	},
	entity.PaymentFailed: {
		entity.PaymentPaid:     true,
		entity.PaymentRefunded: true,
	},
	entity.PaymentRefunded: {},
}

var fulfillmentTransitions = map[entity.FulfillmentStatus]map[entity.FulfillmentStatus]bool{
	entity.FulfillmentPending: {
		entity.FulfillmentShipped:   true,
		entity.FulfillmentDelivered: true,
	},
	entity.FulfillmentShipped: {
		entity.FulfillmentDelivered: true,
	},
	entity.FulfillmentDelivered: {},
}

// TransitionOrder checks an order status change. Setting the current value
// again is a no-op and always allowed.
func TransitionOrder(from, to entity.OrderStatus) error {
	if from == to {
		return nil
	}
	if !orderTransitions[from][to] {
		return fmt.Errorf("%w: order %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ApplyOrder validates and applies an order status change.
func ApplyOrder(order *entity.Order, to entity.OrderStatus) error {
	if err := TransitionOrder(order.Status, to); err != nil {
		return err
	}
	order.Status = to
	return nil
}

// ApplyPayment validates and applies a payment status change, promoting the
// order status PENDING -> PROCESSING when the payment lands as PAID.
func ApplyPayment(order *entity.Order, to entity.PaymentStatus) error {
	from := order.PaymentStatus
	if from != to && !paymentTransitions[from][to] {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, from, to)
	}
	order.PaymentStatus = to
	if to == entity.PaymentPaid && order.Status == entity.OrderPending {
		order.Status = entity.OrderProcessing
	}
	return nil
}

// ApplyFulfillment validates and applies a fulfillment status change,
// promoting the order status to SHIPPED / DELIVERED alongside it.
func ApplyFulfillment(order *entity.Order, to entity.FulfillmentStatus) error {
	from := order.FulfillmentStatus
	if from != to && !fulfillmentTransitions[from][to] {
		return fmt.Errorf("%w: fulfillment %s -> %s", ErrInvalidTransition, from, to)
	}
	order.FulfillmentStatus = to
	switch to {
	case entity.FulfillmentShipped:
		if err := TransitionOrder(order.Status, entity.OrderShipped); err == nil {
			order.Status = entity.OrderShipped
		}
	case entity.FulfillmentDelivered:
		if err := TransitionOrder(order.Status, entity.OrderDelivered); err == nil {
			order.Status = entity.OrderDelivered
		}
	}
	return nil
}

// CanCancel reports whether an order in the given status is cancellable.
// Only PENDING and PROCESSING orders qualify.
func CanCancel(s entity.OrderStatus) bool {
	return s == entity.OrderPending || s == entity.OrderProcessing
}
