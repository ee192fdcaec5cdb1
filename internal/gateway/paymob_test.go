package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/nilemart/backend/internal/entity"
)

func signPaymob(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymobParseWebhook(t *testing.T) {
	const secret = "paymob-test-secret"
	driver := NewPaymob(secret)

	payload := []byte(`{"obj":{"id":4412,"order":{"merchant_order_id":"17"},"amount_cents":20000,"currency":"egp","success":true,"pending":false,"source_data":{"type":"card","sub_type":"MasterCard"}}}`)

	t.Run("valid signature yields paid card event", func(t *testing.T) {
		evt, err := driver.ParseWebhook(payload, signPaymob(secret, payload))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if evt.OrderID != 17 {
			t.Errorf("OrderID = %d, want 17", evt.OrderID)
		}
		if evt.TransactionID != "4412" {
			t.Errorf("TransactionID = %q, want 4412", evt.TransactionID)
		}
		if evt.Amount.String() != "200" {
			t.Errorf("Amount = %s, want 200", evt.Amount)
		}
		if evt.Currency != "EGP" {
			t.Errorf("Currency = %q, want EGP", evt.Currency)
		}
		if evt.Status != entity.PaymentPaid {
			t.Errorf("Status = %s, want PAID", evt.Status)
		}
		if evt.Method != entity.MethodCard {
			t.Errorf("Method = %s, want CARD", evt.Method)
		}
		if evt.CapturedAt.IsZero() {
			t.Error("CapturedAt not set for paid event")
		}
	})

	t.Run("wrong signature", func(t *testing.T) {
		_, err := driver.ParseWebhook(payload, signPaymob("other-secret", payload))
		if !errors.Is(err, ErrSignature) {
			t.Fatalf("err = %v, want ErrSignature", err)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		sig := signPaymob(secret, payload)
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] = '9'
		if _, err := driver.ParseWebhook(tampered, sig); !errors.Is(err, ErrSignature) {
			t.Fatalf("err = %v, want ErrSignature", err)
		}
	})

	t.Run("non-hex signature", func(t *testing.T) {
		if _, err := driver.ParseWebhook(payload, "zz-not-hex"); !errors.Is(err, ErrSignature) {
			t.Fatalf("err = %v, want ErrSignature", err)
		}
	})

	t.Run("wallet source maps to wallet method", func(t *testing.T) {
		body := []byte(`{"obj":{"id":1,"order":{"merchant_order_id":"3"},"amount_cents":5000,"currency":"EGP","success":true,"pending":false,"source_data":{"type":"wallet","sub_type":"vodafone"}}}`)
		evt, err := driver.ParseWebhook(body, signPaymob(secret, body))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if evt.Method != entity.MethodWallet {
			t.Errorf("Method = %s, want WALLET", evt.Method)
		}
	})

	t.Run("pending transaction is failed, not paid", func(t *testing.T) {
		body := []byte(`{"obj":{"id":2,"order":{"merchant_order_id":"3"},"amount_cents":5000,"currency":"EGP","success":true,"pending":true,"source_data":{"type":"card"}}}`)
		evt, err := driver.ParseWebhook(body, signPaymob(secret, body))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if evt.Status != entity.PaymentFailed {
			t.Errorf("Status = %s, want FAILED", evt.Status)
		}
		if !evt.CapturedAt.IsZero() {
			t.Error("CapturedAt set for non-paid event")
		}
	})

	t.Run("malformed merchant order id", func(t *testing.T) {
		body := []byte(`{"obj":{"id":3,"order":{"merchant_order_id":"not-a-number"},"amount_cents":1,"currency":"EGP","success":true,"pending":false}}`)
		if _, err := driver.ParseWebhook(body, signPaymob(secret, body)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("err = %v, want ErrMalformed", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		body := []byte(`{"obj":`)
		if _, err := driver.ParseWebhook(body, signPaymob(secret, body)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("err = %v, want ErrMalformed", err)
		}
	})
}
