package gateway

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/nilemart/backend/internal/config"
)

// New selects the configured driver.
func New(cfg config.Config) (Gateway, error) {
	switch cfg.Payment.Driver {
	case "paymob":
		return NewPaymob(cfg.Payment.WebhookSecret), nil
	case "stripe":
		return NewStripe(cfg.Payment.Stripe.APIKey, cfg.Payment.Stripe.WebhookSecret), nil
	case "noop":
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown payment driver %q", cfg.Payment.Driver)
	}
}

// Module provides the payment gateway to Fx.
var Module = fx.Provide(New)
