package sequence

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilemart/backend/internal/entity"
)

var repoTracer = otel.Tracer("github.com/nilemart/backend/repository/sequence")

// Repository allocates human-readable order numbers from a per-year counter
// row. The increment is a single upsert evaluated by the store, so concurrent
// callers can never observe the same value; gaps appear when the enclosing
// transaction rolls back, which is acceptable.
type Repository struct{}

// NewRepository constructs the sequencer.
func NewRepository() *Repository {
	return &Repository{}
}

// Next allocates the next order number for the given year on the supplied
// transaction handle, formatted as ORD-<year>-<6-digit-sequence>.
func (r *Repository) Next(ctx context.Context, idb bun.IDB, year int) (string, error) {
	ctx, span := repoTracer.Start(ctx, "SequenceRepository.Next", trace.WithAttributes(attribute.Int("order.year", year)))
	defer span.End()

	seq := &entity.OrderSequence{Year: year, Value: 1}
	err := idb.NewInsert().Model(seq).
		On("CONFLICT (year) DO UPDATE").
		Set("value = order_sequence.value + 1").
		Returning("value").
		Scan(ctx, &seq.Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sequence upsert failed")
		return "", err
	}

	return fmt.Sprintf("ORD-%04d-%06d", year, seq.Value), nil
}
