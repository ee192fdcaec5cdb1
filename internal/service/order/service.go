package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nilemart/backend/internal/cache"
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
	"github.com/nilemart/backend/internal/status"
	"github.com/nilemart/backend/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/nilemart/backend/service/order")

// Service orchestrates order creation, cancellation and status updates. Every
// mutation runs as one transaction on the writer; cache and event publication
// happen only after commit.
type Service struct {
	conns     *database.Connections
	orders    *orderrepo.Repository
	catalog   *catalogrepo.Repository
	addresses *addressrepo.Repository
	carts     *cartrepo.Repository
	sequences *sequence.Repository
	inventory *inventory.Repository
	gateway   gateway.Gateway
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher *event.Publisher
	currency  string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Connections *database.Connections
	Orders      *orderrepo.Repository
	Catalog     *catalogrepo.Repository
	Addresses   *addressrepo.Repository
	Carts       *cartrepo.Repository
	Sequences   *sequence.Repository
	Inventory   *inventory.Repository
	Gateway     gateway.Gateway
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
	Publisher   *event.Publisher
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		conns:     p.Connections,
		orders:    p.Orders,
		catalog:   p.Catalog,
		addresses: p.Addresses,
		carts:     p.Carts,
		sequences: p.Sequences,
		inventory: p.Inventory,
		gateway:   p.Gateway,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		currency:  p.Config.Store.Currency,
	}
}

// CheckoutInput carries the caller's order-creation request.
type CheckoutInput struct {
	BillingAddressID  int64
	ShippingAddressID int64
	Currency          string
}

var decimalZero = decimal.NewFromInt(0)

// Checkout turns the customer's cart into a persisted order: addresses are
// validated, every line is re-priced against the live catalog, an order number
// is allocated, order and items are written, inventory is reserved and the
// cart is cleared. All of it commits or none of it does.
func (s *Service) Checkout(ctx context.Context, customerID int64, in CheckoutInput) (*entity.Order, *gateway.Intent, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Checkout", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	currency := in.Currency
	if currency == "" {
		currency = s.currency
	}

	var created *entity.Order
	err := s.conns.Writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.addresses.GetOwned(ctx, tx, in.BillingAddressID, customerID); err != nil {
			if errors.Is(err, addressrepo.ErrNotFound) {
				return errorbank.BadRequest("billing address invalid")
			}
			return err
		}
		if _, err := s.addresses.GetOwned(ctx, tx, in.ShippingAddressID, customerID); err != nil {
			if errors.Is(err, addressrepo.ErrNotFound) {
				return errorbank.BadRequest("shipping address invalid")
			}
			return err
		}

		crt, err := s.carts.GetByCustomer(ctx, tx, customerID)
		if err != nil {
			if errors.Is(err, cartrepo.ErrNotFound) {
				return errorbank.BadRequest("cart is empty")
			}
			return err
		}
		if len(crt.Items) == 0 {
			return errorbank.BadRequest("cart is empty")
		}

		variants := make(map[int64]*entity.Variant, len(crt.Items))
		for _, item := range crt.Items {
			if _, seen := variants[item.VariantID]; seen {
				continue
			}
			variant, err := s.catalog.GetVariant(ctx, tx, item.VariantID)
			if err != nil && !errors.Is(err, catalogrepo.ErrNotFound) {
				return err
			}
			if err == nil {
				variants[item.VariantID] = variant
			}
		}

		lines, subtotal, failures := buildLines(crt.Items, variants, currency)
		if len(failures) > 0 {
			opt := errorbank.WithDetail("lines", failures)
			if anyInsufficientStock(failures) {
				return errorbank.Conflict("insufficient stock", opt)
			}
			return errorbank.Unprocessable("cart validation failed", opt)
		}

		now := time.Now().UTC()
		number, err := s.sequences.Next(ctx, tx, now.Year())
		if err != nil {
			return err
		}

		order := &entity.Order{
			Number:            number,
			CustomerID:        customerID,
			Currency:          currency,
			Status:            entity.OrderPending,
			PaymentStatus:     entity.PaymentPending,
			FulfillmentStatus: entity.FulfillmentPending,
			BillingAddressID:  in.BillingAddressID,
			ShippingAddressID: in.ShippingAddressID,
			Subtotal:          subtotal,
			ShippingTotal:     decimalZero,
			TaxTotal:          decimalZero,
			Total:             subtotal,
			PlacedAt:          now,
			CreatedAt:         now,
			UpdatedAt:         now,
			Items:             lines,
		}
		if err := s.orders.CreateWithItems(ctx, tx, order); err != nil {
			return err
		}

		// The decrement predicate re-checks stock at write time; passing the
		// validation above does not guarantee success here under concurrency.
		for _, line := range lines {
			if err := s.inventory.Reserve(ctx, tx, line.VariantID, line.Quantity); err != nil {
				if errors.Is(err, inventory.ErrInsufficientStock) {
					return errorbank.Conflict("insufficient stock",
						errorbank.WithDetail("lines", []LineFailure{{VariantID: line.VariantID, Reason: FailureInsufficientStock}}))
				}
				return err
			}
		}

		if err := s.carts.Clear(ctx, tx, crt.ID); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		var appErr *errorbank.AppError
		if errors.As(err, &appErr) {
			return nil, nil, appErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		return nil, nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.afterMutation(ctx, created, event.TypeOrderCreated)

	intent, err := s.gateway.CreateIntent(ctx, created)
	if err != nil {
		s.logger.Warn("payment intent creation failed",
			zap.Int64("order_id", created.ID), zap.Error(err))
		intent = nil
	}

	return created, intent, nil
}

// Get retrieves an order scoped to its owner, consulting cache when available.
func (s *Service) Get(ctx context.Context, id, customerID int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		if order.CustomerID != customerID {
			return nil, errorbank.NotFound("order not found")
		}
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.orders.GetOwned(ctx, s.conns.Reader, id, customerID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}

	return order, nil
}

// List returns the customer's orders, newest first.
func (s *Service) List(ctx context.Context, customerID int64) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	orders, err := s.orders.ListByCustomer(ctx, s.conns.Reader, customerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Cancel reverses a cancellable order: inventory is restored for every line,
// the order becomes CANCELLED and its payment REFUNDED, all in one transaction.
// CANCELLED is terminal, so the restore can never run twice for an order.
func (s *Service) Cancel(ctx context.Context, id, customerID int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	var cancelled *entity.Order
	err := s.conns.Writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.orders.GetOwned(ctx, tx, id, customerID)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				return errorbank.NotFound("order not found")
			}
			return err
		}
		if !status.CanCancel(order.Status) {
			return errorbank.Conflict(fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
		}

		for _, item := range order.Items {
			if err := s.inventory.Restore(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}

		order.Status = entity.OrderCancelled
		order.PaymentStatus = entity.PaymentRefunded
		if err := s.orders.UpdateStatuses(ctx, tx, order); err != nil {
			return err
		}

		cancelled = order
		return nil
	})
	if err != nil {
		var appErr *errorbank.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancellation failed")
		return nil, errorbank.Internal("failed to cancel order", errorbank.WithCause(err))
	}

	s.afterMutation(ctx, cancelled, event.TypeOrderCancelled)
	return cancelled, nil
}

// UpdateStatus applies a direct order status change.
func (s *Service) UpdateStatus(ctx context.Context, id int64, raw string) (*entity.Order, error) {
	to, err := entity.ParseOrderStatus(raw)
	if err != nil {
		return nil, errorbank.BadRequest(err.Error())
	}
	return s.applyStatusChange(ctx, "OrderService.UpdateStatus", id, func(order *entity.Order) error {
		return status.ApplyOrder(order, to)
	})
}

// UpdatePaymentStatus applies a payment status change, including the
// PAID promotion of pending orders.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id int64, raw string) (*entity.Order, error) {
	to, err := entity.ParsePaymentStatus(raw)
	if err != nil {
		return nil, errorbank.BadRequest(err.Error())
	}
	return s.applyStatusChange(ctx, "OrderService.UpdatePaymentStatus", id, func(order *entity.Order) error {
		return status.ApplyPayment(order, to)
	})
}

// UpdateFulfillmentStatus applies a fulfillment status change, promoting the
// order status alongside it where allowed.
func (s *Service) UpdateFulfillmentStatus(ctx context.Context, id int64, raw string) (*entity.Order, error) {
	to, err := entity.ParseFulfillmentStatus(raw)
	if err != nil {
		return nil, errorbank.BadRequest(err.Error())
	}
	return s.applyStatusChange(ctx, "OrderService.UpdateFulfillmentStatus", id, func(order *entity.Order) error {
		return status.ApplyFulfillment(order, to)
	})
}

func (s *Service) applyStatusChange(ctx context.Context, op string, id int64, apply func(*entity.Order) error) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	var updated *entity.Order
	err := s.conns.Writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.orders.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				return errorbank.NotFound("order not found")
			}
			return err
		}
		if err := apply(order); err != nil {
			if errors.Is(err, status.ErrInvalidTransition) {
				return errorbank.Conflict(err.Error())
			}
			return err
		}
		if err := s.orders.UpdateStatuses(ctx, tx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		var appErr *errorbank.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		return nil, errorbank.Internal("failed to update order", errorbank.WithCause(err))
	}

	s.afterMutation(ctx, updated, event.TypeOrderUpdated)
	return updated, nil
}

// afterMutation refreshes the cache entry and publishes the domain event.
// Both are best-effort; the transaction already committed.
func (s *Service) afterMutation(ctx context.Context, order *entity.Order, eventType string) {
	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}
	s.publisher.PublishOrderEvent(ctx, eventType, order)
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}
