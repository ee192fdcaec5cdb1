package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nilemart/backend/internal/config"
	"github.com/nilemart/backend/internal/database"
	"github.com/nilemart/backend/internal/entity"
	"github.com/nilemart/backend/internal/event"
	"github.com/nilemart/backend/internal/gateway"
	orderrepo "github.com/nilemart/backend/internal/repository/order"
	paymentrepo "github.com/nilemart/backend/internal/repository/payment"
	"github.com/nilemart/backend/internal/testdb"
	"github.com/nilemart/backend/pkg/errorbank"
)

func newTestService(t *testing.T, gw gateway.Gateway) (*Service, *database.Connections) {
	t.Helper()

	conns := testdb.Connections(t)
	svc := NewService(Params{
		Connections: conns,
		Orders:      orderrepo.NewRepository(),
		Payments:    paymentrepo.NewRepository(),
		Gateway:     gw,
		Cache:       nil,
		Logger:      zap.NewNop(),
		Publisher:   event.NewPublisher(nil, config.Config{}, zap.NewNop()),
	})
	return svc, conns
}

func seedOrder(t *testing.T, conns *database.Connections, id int64) *entity.Order {
	t.Helper()
	now := time.Now().UTC()
	order := &entity.Order{
		ID:                id,
		Number:            fmt.Sprintf("ORD-2025-%06d", id),
		CustomerID:        1,
		Currency:          "EGP",
		Status:            entity.OrderPending,
		PaymentStatus:     entity.PaymentPending,
		FulfillmentStatus: entity.FulfillmentPending,
		BillingAddressID:  1,
		ShippingAddressID: 2,
		Subtotal:          decimal.RequireFromString("200.00"),
		Total:             decimal.RequireFromString("200.00"),
		PlacedAt:          now,
		CreatedAt:         now,
	}
	if _, err := conns.Writer.NewInsert().Model(order).Exec(context.Background()); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func reloadOrder(t *testing.T, conns *database.Connections, id int64) *entity.Order {
	t.Helper()
	order := new(entity.Order)
	if err := conns.Reader.NewSelect().Model(order).Where("id = ?", id).Scan(context.Background()); err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order
}

func paymentCount(t *testing.T, conns *database.Connections) int {
	t.Helper()
	count, err := conns.Reader.NewSelect().Model((*entity.Payment)(nil)).Count(context.Background())
	if err != nil {
		t.Fatalf("count payments: %v", err)
	}
	return count
}

func kindOf(t *testing.T, err error) errorbank.Kind {
	t.Helper()
	var appErr *errorbank.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v, want *errorbank.AppError", err)
	}
	return appErr.Kind()
}

// paidPayload builds a noop-driver payload reporting a successful card
// payment against the given order.
func paidPayload(orderID int64, txnID int64) []byte {
	return []byte(fmt.Sprintf(
		`{"obj":{"id":%d,"order":{"merchant_order_id":"%d"},"amount_cents":20000,"currency":"EGP","success":true,"pending":false,"source_data":{"type":"card"}}}`,
		txnID, orderID,
	))
}

func TestApplyWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("paid event records payment and promotes order", func(t *testing.T) {
		svc, conns := newTestService(t, gateway.NewNoop())
		order := seedOrder(t, conns, 1)

		if err := svc.ApplyWebhook(ctx, "noop", paidPayload(order.ID, 500), ""); err != nil {
			t.Fatalf("ApplyWebhook: %v", err)
		}

		got := reloadOrder(t, conns, order.ID)
		if got.PaymentStatus != entity.PaymentPaid {
			t.Errorf("PaymentStatus = %s, want PAID", got.PaymentStatus)
		}
		if got.Status != entity.OrderProcessing {
			t.Errorf("Status = %s, want PROCESSING (promoted)", got.Status)
		}
		if n := paymentCount(t, conns); n != 1 {
			t.Errorf("payments = %d, want 1", n)
		}
	})

	t.Run("duplicate delivery is a success no-op", func(t *testing.T) {
		svc, conns := newTestService(t, gateway.NewNoop())
		order := seedOrder(t, conns, 1)
		payload := paidPayload(order.ID, 500)

		if err := svc.ApplyWebhook(ctx, "noop", payload, ""); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := svc.ApplyWebhook(ctx, "noop", payload, ""); err != nil {
			t.Fatalf("second delivery: %v", err)
		}

		if n := paymentCount(t, conns); n != 1 {
			t.Errorf("payments = %d, want 1", n)
		}
		got := reloadOrder(t, conns, order.ID)
		if got.Status != entity.OrderProcessing {
			t.Errorf("Status = %s, want PROCESSING", got.Status)
		}
	})

	t.Run("failed event records row without promotion", func(t *testing.T) {
		svc, conns := newTestService(t, gateway.NewNoop())
		order := seedOrder(t, conns, 1)
		payload := []byte(fmt.Sprintf(
			`{"obj":{"id":501,"order":{"merchant_order_id":"%d"},"amount_cents":20000,"currency":"EGP","success":false,"pending":false,"source_data":{"type":"card"}}}`,
			order.ID,
		))

		if err := svc.ApplyWebhook(ctx, "noop", payload, ""); err != nil {
			t.Fatalf("ApplyWebhook: %v", err)
		}

		got := reloadOrder(t, conns, order.ID)
		if got.PaymentStatus != entity.PaymentPending {
			t.Errorf("PaymentStatus = %s, want PENDING (untouched)", got.PaymentStatus)
		}
		if got.Status != entity.OrderPending {
			t.Errorf("Status = %s, want PENDING", got.Status)
		}
		if n := paymentCount(t, conns); n != 1 {
			t.Errorf("payments = %d, want 1", n)
		}
	})

	t.Run("invalid signature rejected before any side effect", func(t *testing.T) {
		svc, conns := newTestService(t, gateway.NewPaymob("secret"))
		order := seedOrder(t, conns, 1)

		err := svc.ApplyWebhook(ctx, "paymob", paidPayload(order.ID, 500), "deadbeef")
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindUnauthorized {
			t.Errorf("kind = %s, want unauthorized", kindOf(t, err))
		}
		if n := paymentCount(t, conns); n != 0 {
			t.Errorf("payments = %d, want 0", n)
		}
	})

	t.Run("unknown provider route", func(t *testing.T) {
		svc, conns := newTestService(t, gateway.NewNoop())
		seedOrder(t, conns, 1)

		err := svc.ApplyWebhook(ctx, "paymob", paidPayload(1, 500), "")
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindNotFound {
			t.Errorf("kind = %s, want not_found", kindOf(t, err))
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _ := newTestService(t, gateway.NewNoop())

		err := svc.ApplyWebhook(ctx, "noop", paidPayload(404, 500), "")
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindNotFound {
			t.Errorf("kind = %s, want not_found", kindOf(t, err))
		}
	})
}

func TestRecordCash(t *testing.T) {
	ctx := context.Background()
	amount := decimal.RequireFromString("200.00")

	t.Run("records and promotes", func(t *testing.T) {
		svc, conns := newTestService(t, gateway.NewNoop())
		order := seedOrder(t, conns, 1)

		if err := svc.RecordCash(ctx, order.ID, amount, "EGP"); err != nil {
			t.Fatalf("RecordCash: %v", err)
		}

		got := reloadOrder(t, conns, order.ID)
		if got.PaymentStatus != entity.PaymentPaid {
			t.Errorf("PaymentStatus = %s, want PAID", got.PaymentStatus)
		}
		if got.Status != entity.OrderProcessing {
			t.Errorf("Status = %s, want PROCESSING", got.Status)
		}

		rows, err := svc.ListForOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("ListForOrder: %v", err)
		}
		if len(rows) != 1 || rows[0].Method != entity.MethodCashOnDelivery || rows[0].Provider != "cash" {
			t.Errorf("rows = %+v", rows)
		}
	})

	t.Run("second cash payment conflicts", func(t *testing.T) {
		svc, conns := newTestService(t, gateway.NewNoop())
		order := seedOrder(t, conns, 1)

		if err := svc.RecordCash(ctx, order.ID, amount, "EGP"); err != nil {
			t.Fatalf("RecordCash: %v", err)
		}
		err := svc.RecordCash(ctx, order.ID, amount, "EGP")
		if err == nil {
			t.Fatal("second cash payment succeeded")
		}
		if kindOf(t, err) != errorbank.KindConflict {
			t.Errorf("kind = %s, want conflict", kindOf(t, err))
		}
		if n := paymentCount(t, conns); n != 1 {
			t.Errorf("payments = %d, want 1", n)
		}
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		svc, conns := newTestService(t, gateway.NewNoop())
		order := seedOrder(t, conns, 1)

		err := svc.RecordCash(ctx, order.ID, decimal.Zero, "EGP")
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindBadRequest {
			t.Errorf("kind = %s, want bad_request", kindOf(t, err))
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		svc, _ := newTestService(t, gateway.NewNoop())

		err := svc.RecordCash(ctx, 404, amount, "EGP")
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindNotFound {
			t.Errorf("kind = %s, want not_found", kindOf(t, err))
		}
	})
}
