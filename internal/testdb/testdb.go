// Package testdb builds throwaway in-memory databases for repository and
// service tests.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/nilemart/backend/internal/database"
	"github.com/nilemart/backend/internal/entity"
)

var dbSeq int64

// New opens an in-memory sqlite database with the full schema applied. Each
// call gets its own named database so tests stay isolated, and the pool is
// capped at one connection so concurrent transactions serialize instead of
// failing with a busy error.
func New(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	models := []any{
		(*entity.Variant)(nil),
		(*entity.VariantPrice)(nil),
		(*entity.Address)(nil),
		(*entity.Cart)(nil),
		(*entity.CartItem)(nil),
		(*entity.Order)(nil),
		(*entity.OrderItem)(nil),
		(*entity.Payment)(nil),
		(*entity.OrderSequence)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("create table for %T: %v", model, err)
		}
	}

	indexes := []struct {
		name    string
		model   any
		columns []string
	}{
		{"ux_orders_number", (*entity.Order)(nil), []string{"number"}},
		{"ux_payments_provider_ref", (*entity.Payment)(nil), []string{"provider", "provider_ref"}},
		{"ux_variant_prices_variant_currency", (*entity.VariantPrice)(nil), []string{"variant_id", "currency"}},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).
			Index(idx.name).
			Unique().
			Column(idx.columns...).
			Exec(ctx); err != nil {
			t.Fatalf("create index %s: %v", idx.name, err)
		}
	}

	return db
}

// Connections wraps a test database in the writer/reader bundle services
// expect.
func Connections(t *testing.T) *database.Connections {
	db := New(t)
	return &database.Connections{Writer: db, Reader: db}
}
