package seeder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nilemart/backend/internal/database"
	"github.com/nilemart/backend/internal/entity"
)

// Module wires the seeder.
var Module = fx.Provide(New)

// Seeder loads demo catalog, address and cart rows for local setups. Seeded
// rows use fixed natural keys, so re-running is harmless.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// All runs every seeder in dependency order.
func (s *Seeder) All(ctx context.Context) error {
	if err := s.Catalog(ctx); err != nil {
		return err
	}
	if err := s.Addresses(ctx); err != nil {
		return err
	}
	return s.Carts(ctx)
}

// Catalog seeds demo variants with stock and EGP/USD prices.
func (s *Seeder) Catalog(ctx context.Context) error {
	now := time.Now().UTC()
	variants := []*entity.Variant{
		{ID: 1, ProductID: 1, SKU: "TSHIRT-BLK-M", ProductName: "Classic T-Shirt Black M", Active: true, StockOnHand: 50, CreatedAt: now},
		{ID: 2, ProductID: 1, SKU: "TSHIRT-BLK-L", ProductName: "Classic T-Shirt Black L", Active: true, StockOnHand: 35, CreatedAt: now},
		{ID: 3, ProductID: 2, SKU: "MUG-WHT", ProductName: "Ceramic Mug White", Active: true, StockOnHand: 120, CreatedAt: now},
		{ID: 4, ProductID: 3, SKU: "HOODIE-GRY-M", ProductName: "Hoodie Grey M", Active: false, StockOnHand: 10, CreatedAt: now},
	}
	for _, v := range variants {
		if _, err := s.db.NewInsert().Model(v).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	prices := []*entity.VariantPrice{
		{VariantID: 1, Currency: "EGP", Amount: decimal.RequireFromString("100.00")},
		{VariantID: 1, Currency: "USD", Amount: decimal.RequireFromString("4.99")},
		{VariantID: 2, Currency: "EGP", Amount: decimal.RequireFromString("110.00")},
		{VariantID: 3, Currency: "EGP", Amount: decimal.RequireFromString("75.50")},
		{VariantID: 3, Currency: "USD", Amount: decimal.RequireFromString("3.75")},
		{VariantID: 4, Currency: "EGP", Amount: decimal.RequireFromString("450.00")},
	}
	for _, p := range prices {
		if _, err := s.db.NewInsert().Model(p).
			On("CONFLICT (variant_id, currency) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("seeded catalog", zap.Int("variants", len(variants)), zap.Int("prices", len(prices)))
	return nil
}

// Addresses seeds demo addresses for customer 1.
func (s *Seeder) Addresses(ctx context.Context) error {
	now := time.Now().UTC()
	addresses := []*entity.Address{
		{ID: 1, CustomerID: 1, Label: "home", Line1: "12 Tahrir Square", City: "Cairo", Country: "EG", CreatedAt: now},
		{ID: 2, CustomerID: 1, Label: "work", Line1: "4 Corniche El Nil", Line2: "Floor 7", City: "Cairo", Country: "EG", CreatedAt: now},
	}
	for _, a := range addresses {
		if _, err := s.db.NewInsert().Model(a).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("seeded addresses", zap.Int("count", len(addresses)))
	return nil
}

// Carts seeds a cart for customer 1 with two lines.
func (s *Seeder) Carts(ctx context.Context) error {
	now := time.Now().UTC()
	cart := &entity.Cart{
		ID:         uuid.MustParse("6f1f6c2e-0000-4000-8000-000000000001"),
		CustomerID: 1,
		CreatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(cart).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return err
	}

	items := []*entity.CartItem{
		{CartID: cart.ID, VariantID: 1, SKU: "TSHIRT-BLK-M", ProductName: "Classic T-Shirt Black M", Quantity: 2},
		{CartID: cart.ID, VariantID: 3, SKU: "MUG-WHT", ProductName: "Ceramic Mug White", Quantity: 1},
	}
	for _, item := range items {
		exists, err := s.db.NewSelect().Model((*entity.CartItem)(nil)).
			Where("cart_id = ?", item.CartID).
			Where("variant_id = ?", item.VariantID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(item).Exec(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("seeded cart", zap.String("cart_id", cart.ID.String()))
	return nil
}
