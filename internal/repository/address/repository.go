package address

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilemart/backend/internal/entity"
)

var repoTracer = otel.Tracer("github.com/nilemart/backend/repository/address")

// ErrNotFound is returned when an address is missing or owned by a different
// customer. The two cases are deliberately indistinguishable to callers.
var ErrNotFound = errors.New("address not found")

// Repository resolves customer-owned addresses.
type Repository struct{}

// NewRepository constructs the address repository.
func NewRepository() *Repository {
	return &Repository{}
}

// GetOwned fetches an address scoped to the owning customer.
func (r *Repository) GetOwned(ctx context.Context, idb bun.IDB, id, customerID int64) (*entity.Address, error) {
	ctx, span := repoTracer.Start(ctx, "AddressRepository.GetOwned", trace.WithAttributes(
		attribute.Int64("address.id", id),
		attribute.Int64("customer.id", customerID),
	))
	defer span.End()

	addr := new(entity.Address)
	err := idb.NewSelect().Model(addr).
		Where("id = ?", id).
		Where("customer_id = ?", customerID).
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
	return addr, nil
}
