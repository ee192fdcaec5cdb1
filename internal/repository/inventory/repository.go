package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilemart/backend/internal/entity"
)

var repoTracer = otel.Tracer("github.com/nilemart/backend/repository/inventory")

// ErrInsufficientStock is returned when a reservation cannot be satisfied at
// write time. A caller that passed an earlier stock check can still receive
// this under concurrency; that is expected and must be surfaced.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrVariantNotFound is returned when a restore targets a missing variant.
var ErrVariantNotFound = errors.New("variant not found")

// Repository is the inventory ledger. Reserve and Restore are the only two
// mutations of stock-on-hand in the whole order core; both run on an explicit
// transaction handle supplied by the orchestrator.
type Repository struct{}

// NewRepository constructs the ledger.
func NewRepository() *Repository {
	return &Repository{}
}

// Reserve decrements stock-on-hand by qty. The sufficiency check is part of
// the UPDATE predicate, so the decrement is conditional at the moment of the
// write and stock can never go negative.
func (r *Repository) Reserve(ctx context.Context, idb bun.IDB, variantID int64, qty int) error {
	ctx, span := repoTracer.Start(ctx, "InventoryRepository.Reserve", trace.WithAttributes(
		attribute.Int64("variant.id", variantID),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	res, err := idb.NewUpdate().Model((*entity.Variant)(nil)).
		Set("stock_on_hand = stock_on_hand - ?", qty).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", variantID).
		Where("stock_on_hand >= ?", qty).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve failed")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "insufficient stock")
		return ErrInsufficientStock
	}
	return nil
}

// Restore increments stock-on-hand by qty. It is unconditional; cancellation
// is gated by order state, which guarantees at most one restore per order.
func (r *Repository) Restore(ctx context.Context, idb bun.IDB, variantID int64, qty int) error {
	ctx, span := repoTracer.Start(ctx, "InventoryRepository.Restore", trace.WithAttributes(
		attribute.Int64("variant.id", variantID),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	res, err := idb.NewUpdate().Model((*entity.Variant)(nil)).
		Set("stock_on_hand = stock_on_hand + ?", qty).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", variantID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "restore failed")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "variant missing")
		return ErrVariantNotFound
	}
	return nil
}

// StockOnHand reads the current stock level for a variant.
func (r *Repository) StockOnHand(ctx context.Context, idb bun.IDB, variantID int64) (int, error) {
	var stock int
	err := idb.NewSelect().Model((*entity.Variant)(nil)).
		Column("stock_on_hand").
		Where("id = ?", variantID).
		Scan(ctx, &stock)
	if err != nil {
		return 0, err
	}
	return stock, nil
}
