package payment

import (
	"context"
	"database/sql"
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
	"github.com/nilemart/backend/internal/database"
	"github.com/nilemart/backend/internal/entity"
	"github.com/nilemart/backend/internal/event"
	"github.com/nilemart/backend/internal/gateway"
	orderrepo "github.com/nilemart/backend/internal/repository/order"
	paymentrepo "github.com/nilemart/backend/internal/repository/payment"
	"github.com/nilemart/backend/internal/status"
	"github.com/nilemart/backend/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/nilemart/backend/service/payment")

// Service ingests provider webhooks into the payment ledger and records cash
// collections. Ledger insert and order promotion happen in one transaction;
// duplicate deliveries are acknowledged without side effects.
type Service struct {
	conns     *database.Connections
	orders    *orderrepo.Repository
	payments  *paymentrepo.Repository
	gateway   gateway.Gateway
	cache     cache.Store
	logger    *zap.Logger
	publisher *event.Publisher
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Connections *database.Connections
	Orders      *orderrepo.Repository
	Payments    *paymentrepo.Repository
	Gateway     gateway.Gateway
	Cache       cache.Store
	Logger      *zap.Logger
	Publisher   *event.Publisher
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		conns:     p.Connections,
		orders:    p.Orders,
		payments:  p.Payments,
		gateway:   p.Gateway,
		cache:     p.Cache,
		logger:    p.Logger,
		publisher: p.Publisher,
	}
}

// ApplyWebhook verifies and applies a provider notification. The raw bytes
// must be the unmodified request body; nothing in the payload is trusted
// before the signature checks out. A delivery already present in the ledger
// returns nil so the provider stops retrying.
func (s *Service) ApplyWebhook(ctx context.Context, provider string, raw []byte, signature string) error {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.ApplyWebhook", trace.WithAttributes(attribute.String("payment.provider", provider)))
	defer span.End()

	if provider != s.gateway.Name() {
		return errorbank.NotFound(fmt.Sprintf("unknown payment provider %q", provider))
	}

	evt, err := s.gateway.ParseWebhook(raw, signature)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrSignature):
			s.logger.Warn("webhook signature rejected", zap.String("provider", provider))
			return errorbank.Unauthorized("invalid webhook signature")
		case errors.Is(err, gateway.ErrIgnored):
			return nil
		case errors.Is(err, gateway.ErrMalformed):
			return errorbank.BadRequest(err.Error())
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "webhook parse failed")
			return errorbank.Internal("failed to parse webhook", errorbank.WithCause(err))
		}
	}

	// Cheap pre-check; the unique constraint on (provider, provider_ref) is
	// the authoritative guard when two deliveries race past it.
	if _, err := s.payments.GetByProviderRef(ctx, s.conns.Reader, provider, evt.TransactionID); err == nil {
		s.logger.Info("duplicate webhook acknowledged",
			zap.String("provider", provider), zap.String("provider_ref", evt.TransactionID))
		return nil
	} else if !errors.Is(err, paymentrepo.ErrNotFound) {
		return errorbank.Internal("failed to check payment ledger", errorbank.WithCause(err))
	}

	var updated *entity.Order
	var row *entity.Payment
	err = s.conns.Writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.orders.GetByID(ctx, tx, evt.OrderID)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				return errorbank.NotFound("order not found")
			}
			return err
		}

		row = &entity.Payment{
			OrderID:     order.ID,
			Provider:    provider,
			ProviderRef: evt.TransactionID,
			Amount:      evt.Amount,
			Currency:    evt.Currency,
			Status:      evt.Status,
			Method:      evt.Method,
			CapturedAt:  evt.CapturedAt,
		}
		if err := s.payments.Insert(ctx, tx, row); err != nil {
			return err
		}

		if evt.Status == entity.PaymentPaid {
			if err := status.ApplyPayment(order, entity.PaymentPaid); err != nil {
				return errorbank.Conflict(err.Error())
			}
			if err := s.orders.UpdateStatuses(ctx, tx, order); err != nil {
				return err
			}
		}

		updated = order
		return nil
	})
	if errors.Is(err, paymentrepo.ErrDuplicate) {
		s.logger.Info("duplicate webhook acknowledged",
			zap.String("provider", provider), zap.String("provider_ref", evt.TransactionID))
		return nil
	}
	if err != nil {
		var appErr *errorbank.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook apply failed")
		return errorbank.Internal("failed to apply webhook", errorbank.WithCause(err))
	}

	s.invalidateOrder(ctx, updated.ID)
	s.publisher.PublishPaymentEvent(ctx, updated, row)
	return nil
}

// RecordCash appends a cash-on-delivery collection to the ledger. At most one
// cash payment may exist per order; a second attempt conflicts.
func (s *Service) RecordCash(ctx context.Context, orderID int64, amount decimal.Decimal, currency string) error {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.RecordCash", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if amount.LessThanOrEqual(decimal.NewFromInt(0)) {
		return errorbank.BadRequest("amount must be positive")
	}

	var updated *entity.Order
	var row *entity.Payment
	err := s.conns.Writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.orders.GetByID(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				return errorbank.NotFound("order not found")
			}
			return err
		}

		exists, err := s.payments.HasCashPayment(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if exists {
			return errorbank.Conflict("cash payment already recorded for order")
		}

		row = &entity.Payment{
			OrderID:     order.ID,
			Provider:    "cash",
			ProviderRef: fmt.Sprintf("cod-%d", order.ID),
			Amount:      amount,
			Currency:    currency,
			Status:      entity.PaymentPaid,
			Method:      entity.MethodCashOnDelivery,
			CapturedAt:  time.Now().UTC(),
		}
		if err := s.payments.Insert(ctx, tx, row); err != nil {
			if errors.Is(err, paymentrepo.ErrDuplicate) {
				return errorbank.Conflict("cash payment already recorded for order")
			}
			return err
		}

		if err := status.ApplyPayment(order, entity.PaymentPaid); err != nil {
			return errorbank.Conflict(err.Error())
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
			return appErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "cash recording failed")
		return errorbank.Internal("failed to record cash payment", errorbank.WithCause(err))
	}

	s.invalidateOrder(ctx, updated.ID)
	s.publisher.PublishPaymentEvent(ctx, updated, row)
	return nil
}

// ListForOrder returns the ledger rows for an order, oldest first.
func (s *Service) ListForOrder(ctx context.Context, orderID int64) ([]*entity.Payment, error) {
	payments, err := s.payments.ListByOrder(ctx, s.conns.Reader, orderID)
	if err != nil {
		return nil, errorbank.Internal("failed to list payments", errorbank.WithCause(err))
	}
	return payments, nil
}

func (s *Service) invalidateOrder(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, fmt.Sprintf("orders:%d", id)); err != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}
