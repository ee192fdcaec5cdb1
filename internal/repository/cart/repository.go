package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilemart/backend/internal/entity"
)

var repoTracer = otel.Tracer("github.com/nilemart/backend/repository/cart")

// ErrNotFound is returned when the customer has no cart.
var ErrNotFound = errors.New("cart not found")

// Repository reads and clears customer carts. Item mutation lives with the
// cart collaborator; checkout only consumes and empties.
type Repository struct{}

// NewRepository constructs the cart repository.
func NewRepository() *Repository {
	return &Repository{}
}

// GetByCustomer loads the customer's cart with its items.
func (r *Repository) GetByCustomer(ctx context.Context, idb bun.IDB, customerID int64) (*entity.Cart, error) {
	ctx, span := repoTracer.Start(ctx, "CartRepository.GetByCustomer", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	c := new(entity.Cart)
	err := idb.NewSelect().Model(c).
		Relation("Items").
		Where("cart.customer_id = ?", customerID).
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
	return c, nil
}

// Clear deletes all items from the cart. The cart row itself stays so the
// customer keeps a stable cart id across orders.
func (r *Repository) Clear(ctx context.Context, idb bun.IDB, cartID uuid.UUID) error {
	ctx, span := repoTracer.Start(ctx, "CartRepository.Clear", trace.WithAttributes(attribute.String("cart.id", cartID.String())))
	defer span.End()

	_, err := idb.NewDelete().Model((*entity.CartItem)(nil)).
		Where("cart_id = ?", cartID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	return nil
}
