// Package event defines the domain event envelope published to the bus and
// consumed by the worker.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nilemart/backend/internal/config"
	"github.com/nilemart/backend/internal/entity"
	"github.com/nilemart/backend/internal/messaging"
)

// Event types carried in the envelope.
const (
	TypeOrderCreated    = "order.created"
	TypeOrderUpdated    = "order.updated"
	TypeOrderCancelled  = "order.cancelled"
	TypePaymentCaptured = "payment.captured"
)

// Envelope is the wire form of every domain event. Payment fields are only
// set for payment events.
type Envelope struct {
	ID                string                   `json:"id"`
	Type              string                   `json:"type"`
	OrderID           int64                    `json:"order_id"`
	OrderNumber       string                   `json:"order_number"`
	Status            entity.OrderStatus       `json:"status"`
	PaymentStatus     entity.PaymentStatus     `json:"payment_status"`
	FulfillmentStatus entity.FulfillmentStatus `json:"fulfillment_status"`
	Provider          string                   `json:"provider,omitempty"`
	ProviderRef       string                   `json:"provider_ref,omitempty"`
	Amount            decimal.Decimal          `json:"amount,omitempty"`
	Currency          string                   `json:"currency,omitempty"`
	OccurredAt        time.Time                `json:"occurred_at"`
}

// Publisher emits domain events after a transaction commits. Publication is
// best-effort: a bus failure is logged, never propagated to the caller.
type Publisher struct {
	client  messaging.Client
	enabled bool
	logger  *zap.Logger
}

// NewPublisher constructs the event publisher.
func NewPublisher(client messaging.Client, cfg config.Config, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		enabled: cfg.Messaging.Enabled,
		logger:  logger,
	}
}

// PublishOrderEvent emits an order lifecycle event.
func (p *Publisher) PublishOrderEvent(ctx context.Context, eventType string, order *entity.Order) {
	p.publish(ctx, Envelope{
		ID:                uuid.NewString(),
		Type:              eventType,
		OrderID:           order.ID,
		OrderNumber:       order.Number,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		OccurredAt:        time.Now().UTC(),
	})
}

// PublishPaymentEvent emits a payment capture event for the given order state.
func (p *Publisher) PublishPaymentEvent(ctx context.Context, order *entity.Order, payment *entity.Payment) {
	p.publish(ctx, Envelope{
		ID:                uuid.NewString(),
		Type:              TypePaymentCaptured,
		OrderID:           order.ID,
		OrderNumber:       order.Number,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		Provider:          payment.Provider,
		ProviderRef:       payment.ProviderRef,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		OccurredAt:        time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, env Envelope) {
	if !p.enabled || p.client == nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("marshal event", zap.String("type", env.Type), zap.Error(err))
		return
	}
	key := []byte(fmt.Sprintf("order-%d", env.OrderID))
	if err := p.client.Publish(ctx, key, payload); err != nil {
		p.logger.Error("publish event", zap.String("type", env.Type), zap.Error(err))
	}
}

// Module provides the publisher to Fx.
var Module = fx.Provide(NewPublisher)
