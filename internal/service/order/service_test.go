package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nilemart/backend/internal/config"
	"github.com/nilemart/backend/internal/database"
	"github.com/nilemart/backend/internal/entity"
	"github.com/nilemart/backend/internal/event"
	"github.com/nilemart/backend/internal/gateway"
	addressrepo "github.com/nilemart/backend/internal/repository/address"
	cartrepo "github.com/nilemart/backend/internal/repository/cart"
	catalogrepo "github.com/nilemart/backend/internal/repository/catalog"
	"github.com/nilemart/backend/internal/repository/inventory"
	orderrepo "github.com/nilemart/backend/internal/repository/order"
	"github.com/nilemart/backend/internal/repository/sequence"
	"github.com/nilemart/backend/internal/testdb"
	"github.com/nilemart/backend/pkg/errorbank"
)

const testCustomer int64 = 1

func newTestService(t *testing.T) (*Service, *database.Connections) {
	t.Helper()

	conns := testdb.Connections(t)
	cfg := config.Config{}
	cfg.Store.Currency = "EGP"
	cfg.Cache.DefaultTTL = time.Minute

	svc := NewService(Params{
		Connections: conns,
		Orders:      orderrepo.NewRepository(),
		Catalog:     catalogrepo.NewRepository(),
		Addresses:   addressrepo.NewRepository(),
		Carts:       cartrepo.NewRepository(),
		Sequences:   sequence.NewRepository(),
		Inventory:   inventory.NewRepository(),
		Gateway:     gateway.NewNoop(),
		Cache:       nil,
		Config:      cfg,
		Logger:      zap.NewNop(),
		Publisher:   event.NewPublisher(nil, cfg, zap.NewNop()),
	})
	return svc, conns
}

// seedCheckout loads the happy-path fixture: variant with the given stock,
// EGP price 100.00, two valid addresses and a cart holding qty of the variant.
func seedCheckout(t *testing.T, conns *database.Connections, stock, qty int) {
	t.Helper()
	ctx := context.Background()
	db := conns.Writer
	now := time.Now().UTC()

	variant := &entity.Variant{
		ID: 1, ProductID: 1, SKU: "TSHIRT-BLK-M", ProductName: "Classic T-Shirt Black M",
		Active: true, StockOnHand: stock, CreatedAt: now,
	}
	if _, err := db.NewInsert().Model(variant).Exec(ctx); err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	price := &entity.VariantPrice{VariantID: 1, Currency: "EGP", Amount: decimal.RequireFromString("100.00")}
	if _, err := db.NewInsert().Model(price).Exec(ctx); err != nil {
		t.Fatalf("seed price: %v", err)
	}

	addresses := []*entity.Address{
		{ID: 1, CustomerID: testCustomer, Label: "home", Line1: "12 Tahrir Square", City: "Cairo", Country: "EG", CreatedAt: now},
		{ID: 2, CustomerID: testCustomer, Label: "work", Line1: "4 Corniche El Nil", City: "Cairo", Country: "EG", CreatedAt: now},
	}
	for _, a := range addresses {
		if _, err := db.NewInsert().Model(a).Exec(ctx); err != nil {
			t.Fatalf("seed address: %v", err)
		}
	}

	cart := &entity.Cart{ID: uuid.New(), CustomerID: testCustomer, CreatedAt: now}
	if _, err := db.NewInsert().Model(cart).Exec(ctx); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	item := &entity.CartItem{CartID: cart.ID, VariantID: 1, SKU: variant.SKU, ProductName: variant.ProductName, Quantity: qty}
	if _, err := db.NewInsert().Model(item).Exec(ctx); err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
}

func stockOf(t *testing.T, conns *database.Connections, variantID int64) int {
	t.Helper()
	stock, err := inventory.NewRepository().StockOnHand(context.Background(), conns.Reader, variantID)
	if err != nil {
		t.Fatalf("StockOnHand: %v", err)
	}
	return stock
}

func checkoutInput() CheckoutInput {
	return CheckoutInput{BillingAddressID: 1, ShippingAddressID: 2}
}

func kindOf(t *testing.T, err error) errorbank.Kind {
	t.Helper()
	var appErr *errorbank.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v, want *errorbank.AppError", err)
	}
	return appErr.Kind()
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 50, 2)

		order, _, err := svc.Checkout(ctx, testCustomer, checkoutInput())
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}

		if order.Number != "ORD-"+time.Now().UTC().Format("2006")+"-000001" {
			t.Errorf("Number = %q", order.Number)
		}
		if order.Status != entity.OrderPending || order.PaymentStatus != entity.PaymentPending || order.FulfillmentStatus != entity.FulfillmentPending {
			t.Errorf("statuses = %s/%s/%s, want PENDING/PENDING/PENDING", order.Status, order.PaymentStatus, order.FulfillmentStatus)
		}
		if !order.Subtotal.Equal(decimal.RequireFromString("200.00")) {
			t.Errorf("Subtotal = %s, want 200.00", order.Subtotal)
		}
		if !order.Total.Equal(order.Subtotal) {
			t.Errorf("Total = %s, want subtotal %s", order.Total, order.Subtotal)
		}
		if len(order.Items) != 1 || order.Items[0].Quantity != 2 || order.Items[0].SKU != "TSHIRT-BLK-M" {
			t.Errorf("items = %+v", order.Items)
		}
		if got := stockOf(t, conns, 1); got != 48 {
			t.Errorf("stock = %d, want 48", got)
		}

		// Cart is emptied, so a second checkout attempt must be rejected.
		if _, _, err := svc.Checkout(ctx, testCustomer, checkoutInput()); err == nil {
			t.Error("second checkout with cleared cart succeeded")
		} else if kindOf(t, err) != errorbank.KindBadRequest {
			t.Errorf("kind = %s, want bad_request", kindOf(t, err))
		}
	})

	t.Run("insufficient stock rolls everything back", func(t *testing.T) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 1, 2)

		_, _, err := svc.Checkout(ctx, testCustomer, checkoutInput())
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindConflict {
			t.Fatalf("kind = %s, want conflict", kindOf(t, err))
		}
		if got := stockOf(t, conns, 1); got != 1 {
			t.Errorf("stock = %d, want 1 (unchanged)", got)
		}

		count, err := conns.Reader.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
		if err != nil {
			t.Fatalf("count orders: %v", err)
		}
		if count != 0 {
			t.Errorf("orders persisted = %d, want 0", count)
		}

		// The cart must survive the failed attempt.
		items, err := conns.Reader.NewSelect().Model((*entity.CartItem)(nil)).Count(ctx)
		if err != nil {
			t.Fatalf("count cart items: %v", err)
		}
		if items != 1 {
			t.Errorf("cart items = %d, want 1", items)
		}
	})

	t.Run("foreign address rejected", func(t *testing.T) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 50, 2)

		stranger := &entity.Address{ID: 9, CustomerID: 42, Line1: "somewhere", City: "Giza", Country: "EG"}
		if _, err := conns.Writer.NewInsert().Model(stranger).Exec(ctx); err != nil {
			t.Fatalf("seed: %v", err)
		}

		_, _, err := svc.Checkout(ctx, testCustomer, CheckoutInput{BillingAddressID: 9, ShippingAddressID: 2})
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindBadRequest {
			t.Errorf("kind = %s, want bad_request", kindOf(t, err))
		}
	})

	t.Run("inactive variant rejected", func(t *testing.T) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 50, 2)
		if _, err := conns.Writer.NewUpdate().Model((*entity.Variant)(nil)).
			Set("active = ?", false).Where("id = 1").Exec(ctx); err != nil {
			t.Fatalf("deactivate: %v", err)
		}

		_, _, err := svc.Checkout(ctx, testCustomer, checkoutInput())
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindUnprocessableEntity {
			t.Errorf("kind = %s, want unprocessable", kindOf(t, err))
		}
	})

	t.Run("missing price for requested currency rejected", func(t *testing.T) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 50, 2)

		_, _, err := svc.Checkout(ctx, testCustomer, CheckoutInput{BillingAddressID: 1, ShippingAddressID: 2, Currency: "USD"})
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindUnprocessableEntity {
			t.Errorf("kind = %s, want unprocessable", kindOf(t, err))
		}
	})
}

func TestSnapshotImmutability(t *testing.T) {
	ctx := context.Background()
	svc, conns := newTestService(t)
	seedCheckout(t, conns, 50, 2)

	order, _, err := svc.Checkout(ctx, testCustomer, checkoutInput())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// Rewrite the live catalog after the order exists.
	if _, err := conns.Writer.NewUpdate().Model((*entity.Variant)(nil)).
		Set("product_name = ?", "Renamed").
		Set("sku = ?", "NEW-SKU").
		Where("id = 1").Exec(ctx); err != nil {
		t.Fatalf("mutate variant: %v", err)
	}
	if _, err := conns.Writer.NewUpdate().Model((*entity.VariantPrice)(nil)).
		Set("amount = ?", decimal.RequireFromString("999.99")).
		Where("variant_id = 1").Exec(ctx); err != nil {
		t.Fatalf("mutate price: %v", err)
	}

	reloaded, err := svc.Get(ctx, order.ID, testCustomer)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	item := reloaded.Items[0]
	if item.ProductName != "Classic T-Shirt Black M" || item.SKU != "TSHIRT-BLK-M" {
		t.Errorf("snapshot changed: %q / %q", item.ProductName, item.SKU)
	}
	if !item.UnitPrice.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("snapshot price changed: %s", item.UnitPrice)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order restores stock", func(t *testing.T) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 50, 2)

		order, _, err := svc.Checkout(ctx, testCustomer, checkoutInput())
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		if got := stockOf(t, conns, 1); got != 48 {
			t.Fatalf("stock = %d, want 48", got)
		}

		cancelled, err := svc.Cancel(ctx, order.ID, testCustomer)
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if cancelled.Status != entity.OrderCancelled {
			t.Errorf("Status = %s, want CANCELLED", cancelled.Status)
		}
		if cancelled.PaymentStatus != entity.PaymentRefunded {
			t.Errorf("PaymentStatus = %s, want REFUNDED", cancelled.PaymentStatus)
		}
		if got := stockOf(t, conns, 1); got != 50 {
			t.Errorf("stock = %d, want 50 after restore", got)
		}
	})

	t.Run("cancelled order cannot be cancelled again", func(t *testing.T) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 50, 2)

		order, _, err := svc.Checkout(ctx, testCustomer, checkoutInput())
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		if _, err := svc.Cancel(ctx, order.ID, testCustomer); err != nil {
			t.Fatalf("Cancel: %v", err)
		}

		_, err = svc.Cancel(ctx, order.ID, testCustomer)
		if err == nil {
			t.Fatal("second cancel succeeded")
		}
		if kindOf(t, err) != errorbank.KindConflict {
			t.Errorf("kind = %s, want conflict", kindOf(t, err))
		}
		// Stock must not be restored twice.
		if got := stockOf(t, conns, 1); got != 50 {
			t.Errorf("stock = %d, want 50", got)
		}
	})

	t.Run("foreign order reads as missing", func(t *testing.T) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 50, 2)

		order, _, err := svc.Checkout(ctx, testCustomer, checkoutInput())
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}

		_, err = svc.Cancel(ctx, order.ID, 999)
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindNotFound {
			t.Errorf("kind = %s, want not_found", kindOf(t, err))
		}
	})
}

func TestStatusUpdates(t *testing.T) {
	ctx := context.Background()

	newOrder := func(t *testing.T) (*Service, *database.Connections, *entity.Order) {
		svc, conns := newTestService(t)
		seedCheckout(t, conns, 50, 2)
		order, _, err := svc.Checkout(ctx, testCustomer, checkoutInput())
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		return svc, conns, order
	}

	t.Run("paid promotes pending to processing", func(t *testing.T) {
		svc, _, order := newOrder(t)

		updated, err := svc.UpdatePaymentStatus(ctx, order.ID, "PAID")
		if err != nil {
			t.Fatalf("UpdatePaymentStatus: %v", err)
		}
		if updated.PaymentStatus != entity.PaymentPaid {
			t.Errorf("PaymentStatus = %s, want PAID", updated.PaymentStatus)
		}
		if updated.Status != entity.OrderProcessing {
			t.Errorf("Status = %s, want PROCESSING", updated.Status)
		}
	})

	t.Run("fulfillment shipped promotes order", func(t *testing.T) {
		svc, _, order := newOrder(t)

		updated, err := svc.UpdateFulfillmentStatus(ctx, order.ID, "SHIPPED")
		if err != nil {
			t.Fatalf("UpdateFulfillmentStatus: %v", err)
		}
		if updated.FulfillmentStatus != entity.FulfillmentShipped {
			t.Errorf("FulfillmentStatus = %s, want SHIPPED", updated.FulfillmentStatus)
		}
		if updated.Status != entity.OrderShipped {
			t.Errorf("Status = %s, want SHIPPED", updated.Status)
		}
	})

	t.Run("delivered order only moves to refunded", func(t *testing.T) {
		svc, _, order := newOrder(t)

		if _, err := svc.UpdateStatus(ctx, order.ID, "DELIVERED"); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}

		_, err := svc.UpdateStatus(ctx, order.ID, "PROCESSING")
		if err == nil {
			t.Fatal("DELIVERED -> PROCESSING succeeded")
		}
		if kindOf(t, err) != errorbank.KindConflict {
			t.Errorf("kind = %s, want conflict", kindOf(t, err))
		}

		updated, err := svc.UpdateStatus(ctx, order.ID, "REFUNDED")
		if err != nil {
			t.Fatalf("DELIVERED -> REFUNDED: %v", err)
		}
		if updated.Status != entity.OrderRefunded {
			t.Errorf("Status = %s, want REFUNDED", updated.Status)
		}
	})

	t.Run("unknown status value rejected", func(t *testing.T) {
		svc, _, order := newOrder(t)

		_, err := svc.UpdateStatus(ctx, order.ID, "SOMETHING")
		if err == nil {
			t.Fatal("expected failure")
		}
		if kindOf(t, err) != errorbank.KindBadRequest {
			t.Errorf("kind = %s, want bad_request", kindOf(t, err))
		}
	})
}
