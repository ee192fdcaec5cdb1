package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/nilemart/backend/internal/entity"
)

// Stripe processes card payments through Stripe payment intents. The order id
// travels in intent metadata and comes back on every webhook event.
type Stripe struct {
	webhookSecret string
}

// NewStripe constructs the Stripe driver. The API key is process-global in
// stripe-go, so it is set here once.
func NewStripe(apiKey, webhookSecret string) *Stripe {
	stripe.Key = apiKey
	return &Stripe{webhookSecret: webhookSecret}
}

// Name implements Gateway.
func (s *Stripe) Name() string { return "stripe" }

// CreateIntent implements Gateway.
func (s *Stripe) CreateIntent(ctx context.Context, order *entity.Order) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(order.Total.Mul(decimal.NewFromInt(100)).IntPart()),
		Currency: stripe.String(strings.ToLower(order.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"order_id":     strconv.FormatInt(order.ID, 10),
			"order_number": order.Number,
		},
	}
	params.Context = ctx
	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return &Intent{
		Provider:     s.Name(),
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ParseWebhook implements Gateway.
func (s *Stripe) ParseWebhook(raw []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(raw, signature, s.webhookSecret)
	if err != nil {
		return nil, ErrSignature
	}

	var status entity.PaymentStatus
	switch event.Type {
	case "payment_intent.succeeded":
		status = entity.PaymentPaid
	case "payment_intent.payment_failed":
		status = entity.PaymentFailed
	default:
		return nil, ErrIgnored
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	orderID, err := strconv.ParseInt(intent.Metadata["order_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: order_id metadata %q", ErrMalformed, intent.Metadata["order_id"])
	}

	var capturedAt time.Time
	if status == entity.PaymentPaid {
		capturedAt = time.Now()
	}

	return &Event{
		OrderID:       orderID,
		TransactionID: intent.ID,
		Amount:        decimal.New(intent.Amount, -2),
		Currency:      strings.ToUpper(string(intent.Currency)),
		Status:        status,
		Method:        entity.MethodCard,
		CapturedAt:    capturedAt,
	}, nil
}
