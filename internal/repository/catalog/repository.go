package catalog

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

var repoTracer = otel.Tracer("github.com/nilemart/backend/repository/catalog")

// ErrNotFound is returned when a variant is missing.
var ErrNotFound = errors.New("variant not found")

// Repository resolves live variants with their price lists. Checkout uses it
// to re-validate every cart line against current catalog state instead of the
// cart's cached copy.
type Repository struct{}

// NewRepository constructs the catalog repository.
func NewRepository() *Repository {
	return &Repository{}
}

// GetVariant loads a variant and its prices on the supplied handle.
func (r *Repository) GetVariant(ctx context.Context, idb bun.IDB, id int64) (*entity.Variant, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.GetVariant", trace.WithAttributes(attribute.Int64("variant.id", id)))
	defer span.End()

	variant := new(entity.Variant)
	err := idb.NewSelect().Model(variant).
		Relation("Prices").
		Where("variant.id = ?", id).
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
	return variant, nil
}
