package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nilemart/backend/internal/entity"
)

// Paymob processes card and wallet payments via Paymob. Webhooks carry an
// HMAC-SHA512 hex digest of the raw body, keyed with the shared secret.
type Paymob struct {
	secret []byte
}

// NewPaymob constructs the Paymob driver.
func NewPaymob(secret string) *Paymob {
	return &Paymob{secret: []byte(secret)}
}

// Name implements Gateway.
func (p *Paymob) Name() string { return "paymob" }

// CreateIntent returns a reference the client passes to the Paymob checkout.
// Registration with Paymob's intention API happens client-side against this
// reference, so the server-side handle is just the order number.
func (p *Paymob) CreateIntent(_ context.Context, order *entity.Order) (*Intent, error) {
	return &Intent{
		Provider:  p.Name(),
		Reference: order.Number,
	}, nil
}

type paymobPayload struct {
	Obj struct {
		ID    int64 `json:"id"`
		Order struct {
			MerchantOrderID string `json:"merchant_order_id"`
		} `json:"order"`
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
		Success     bool   `json:"success"`
		Pending     bool   `json:"pending"`
		SourceData  struct {
			Type    string `json:"type"`
			SubType string `json:"sub_type"`
		} `json:"source_data"`
	} `json:"obj"`
}

// ParseWebhook implements Gateway.
func (p *Paymob) ParseWebhook(raw []byte, signature string) (*Event, error) {
	mac := hmac.New(sha512.New, p.secret)
	_, _ = mac.Write(raw)
	expected, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(expected, mac.Sum(nil)) {
		return nil, ErrSignature
	}
	return p.parse(raw)
}

func (p *Paymob) parse(raw []byte) (*Event, error) {
	var payload paymobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	orderID, err := strconv.ParseInt(payload.Obj.Order.MerchantOrderID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: merchant_order_id %q", ErrMalformed, payload.Obj.Order.MerchantOrderID)
	}

	status := entity.PaymentFailed
	var capturedAt time.Time
	if payload.Obj.Success && !payload.Obj.Pending {
		status = entity.PaymentPaid
		capturedAt = time.Now()
	}

	method := entity.MethodCard
	if strings.Contains(strings.ToLower(payload.Obj.SourceData.Type), "wallet") {
		method = entity.MethodWallet
	}

	return &Event{
		OrderID:       orderID,
		TransactionID: strconv.FormatInt(payload.Obj.ID, 10),
		Amount:        decimal.New(payload.Obj.AmountCents, -2),
		Currency:      strings.ToUpper(payload.Obj.Currency),
		Status:        status,
		Method:        method,
		CapturedAt:    capturedAt,
	}, nil
}
