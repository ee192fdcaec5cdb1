package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilemart/backend/internal/database"
	"github.com/nilemart/backend/internal/entity"
)

var repoTracer = otel.Tracer("github.com/nilemart/backend/repository/payment")

var (
	// ErrNotFound is returned when no payment matches a provider reference.
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicate is returned when an insert collides with an existing
	// (provider, provider_ref) pair. Callers treat it as "already recorded".
	ErrDuplicate = errors.New("payment already recorded")
)

// Repository persists the append-only payment ledger.
type Repository struct{}

// NewRepository constructs the payment repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Insert records a payment row. A unique-constraint collision on
// (provider, provider_ref) surfaces as ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, idb bun.IDB, p *entity.Payment) error {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.Insert", trace.WithAttributes(
		attribute.String("payment.provider", p.Provider),
		attribute.String("payment.provider_ref", p.ProviderRef),
	))
	defer span.End()

	if _, err := idb.NewInsert().Model(p).Exec(ctx); err != nil {
		if database.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate")
			return ErrDuplicate
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// GetByProviderRef looks up a payment by its idempotency key.
func (r *Repository) GetByProviderRef(ctx context.Context, idb bun.IDB, provider, providerRef string) (*entity.Payment, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.GetByProviderRef", trace.WithAttributes(
		attribute.String("payment.provider", provider),
		attribute.String("payment.provider_ref", providerRef),
	))
	defer span.End()

	p := new(entity.Payment)
	err := idb.NewSelect().Model(p).
		Where("provider = ?", provider).
		Where("provider_ref = ?", providerRef).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return p, nil
}

// ListByOrder returns all payment rows recorded against an order, oldest first.
func (r *Repository) ListByOrder(ctx context.Context, idb bun.IDB, orderID int64) ([]*entity.Payment, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.ListByOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var payments []*entity.Payment
	err := idb.NewSelect().Model(&payments).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return payments, nil
}

// HasCashPayment reports whether a cash-on-delivery row already exists for
// the order.
func (r *Repository) HasCashPayment(ctx context.Context, idb bun.IDB, orderID int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.HasCashPayment", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	exists, err := idb.NewSelect().Model((*entity.Payment)(nil)).
		Where("order_id = ?", orderID).
		Where("method = ?", entity.MethodCashOnDelivery).
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exists failed")
		return false, err
	}
	return exists, nil
}
