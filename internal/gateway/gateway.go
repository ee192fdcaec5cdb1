// Package gateway abstracts external payment providers behind a single
// interface. Drivers translate provider-specific webhook payloads into a
// normalized Event; everything downstream of this package is provider-neutral.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nilemart/backend/internal/entity"
)

var (
	// ErrSignature is returned when a webhook payload fails signature
	// verification. The payload must not be trusted in any way.
	ErrSignature = errors.New("webhook signature verification failed")
	// ErrMalformed is returned when a verified payload cannot be decoded.
	ErrMalformed = errors.New("webhook payload malformed")
	// ErrIgnored is returned for verified events the driver does not act on,
	// e.g. intermediate intent states. Callers acknowledge and move on.
	ErrIgnored = errors.New("webhook event ignored")
)

// Event is a provider-neutral payment notification.
type Event struct {
	OrderID       int64
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Status        entity.PaymentStatus
	Method        entity.PaymentMethod
	CapturedAt    time.Time
}

// Intent is a provider-side payment handle created for an order.
type Intent struct {
	Provider     string
	Reference    string
	ClientSecret string
}

// Gateway is a payment provider driver.
type Gateway interface {
	// Name identifies the driver; webhook routes match against it.
	Name() string
	// CreateIntent registers the order with the provider and returns the
	// handle the client uses to complete payment.
	CreateIntent(ctx context.Context, order *entity.Order) (*Intent, error)
	// ParseWebhook verifies the raw payload against the given signature and
	// decodes it. The raw bytes must be the unmodified request body.
	ParseWebhook(raw []byte, signature string) (*Event, error)
}
