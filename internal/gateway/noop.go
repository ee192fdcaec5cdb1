package gateway

import (
	"context"

	"github.com/nilemart/backend/internal/entity"
)

// Noop accepts everything without contacting a provider. It exists for local
// development and tests; webhook signatures are not checked.
type Noop struct{}

// NewNoop constructs the no-op driver.
func NewNoop() *Noop { return &Noop{} }

// Name implements Gateway.
func (n *Noop) Name() string { return "noop" }

// CreateIntent implements Gateway.
func (n *Noop) CreateIntent(_ context.Context, order *entity.Order) (*Intent, error) {
	return &Intent{Provider: n.Name(), Reference: order.Number}, nil
}

// ParseWebhook implements Gateway. The payload is trusted as-is and decoded
// with the same shape the Paymob driver uses.
func (n *Noop) ParseWebhook(raw []byte, _ string) (*Event, error) {
	return NewPaymob("").parse(raw)
}
