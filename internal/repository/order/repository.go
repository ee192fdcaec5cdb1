package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilemart/backend/internal/entity"
)

var repoTracer = otel.Tracer("github.com/nilemart/backend/repository/order")

// ErrNotFound is returned when an order is missing or, for the owner-scoped
// lookup, belongs to another customer.
var ErrNotFound = errors.New("order not found")

// Repository persists orders and their line items.
type Repository struct{}

// NewRepository constructs the order repository.
func NewRepository() *Repository {
	return &Repository{}
}

// CreateWithItems inserts the order and its items. The order's ID is filled in
// by the insert and propagated to every item before the second insert.
func (r *Repository) CreateWithItems(ctx context.Context, idb bun.IDB, o *entity.Order) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateWithItems", trace.WithAttributes(attribute.String("order.number", o.Number)))
	defer span.End()

	if _, err := idb.NewInsert().Model(o).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert order failed")
		return err
	}
	for _, item := range o.Items {
		item.OrderID = o.ID
	}
	if len(o.Items) > 0 {
		if _, err := idb.NewInsert().Model(&o.Items).Exec(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert items failed")
			return err
		}
	}
	return nil
}

// GetByID loads an order with its items.
func (r *Repository) GetByID(ctx context.Context, idb bun.IDB, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	o := new(entity.Order)
	err := idb.NewSelect().Model(o).
		Relation("Items").
		Where("\"order\".id = ?", id).
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
	return o, nil
}

// GetOwned loads an order with its items, scoped to the owning customer.
// A foreign order reads the same as a missing one.
func (r *Repository) GetOwned(ctx context.Context, idb bun.IDB, id, customerID int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetOwned", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int64("customer.id", customerID),
	))
	defer span.End()

	o := new(entity.Order)
	err := idb.NewSelect().Model(o).
		Relation("Items").
		Where("\"order\".id = ?", id).
		Where("\"order\".customer_id = ?", customerID).
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
	return o, nil
}

// ListByCustomer returns the customer's orders, newest first, without items.
func (r *Repository) ListByCustomer(ctx context.Context, idb bun.IDB, customerID int64) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByCustomer", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	var orders []*entity.Order
	err := idb.NewSelect().Model(&orders).
		Where("customer_id = ?", customerID).
		Order("placed_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// UpdateStatuses writes the order's three status columns. Status decisions are
// made by the caller against a row it holds inside the same transaction.
func (r *Repository) UpdateStatuses(ctx context.Context, idb bun.IDB, o *entity.Order) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatuses", trace.WithAttributes(attribute.Int64("order.id", o.ID)))
	defer span.End()

	o.UpdatedAt = time.Now()
	res, err := idb.NewUpdate().Model(o).
		Column("status", "payment_status", "fulfillment_status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}
