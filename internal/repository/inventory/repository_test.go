package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/nilemart/backend/internal/entity"
	"github.com/nilemart/backend/internal/testdb"
)

func seedVariant(t *testing.T, db *bun.DB, id int64, stock int) {
	t.Helper()
	variant := &entity.Variant{
		ID:          id,
		ProductID:   1,
		SKU:         "SKU-1",
		ProductName: "Widget",
		Active:      true,
		StockOnHand: stock,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(variant).Exec(context.Background()); err != nil {
		t.Fatalf("seed variant: %v", err)
	}
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	t.Run("decrements when stock suffices", func(t *testing.T) {
		db := testdb.New(t)
		seedVariant(t, db, 1, 10)

		if err := repo.Reserve(ctx, db, 1, 4); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		stock, err := repo.StockOnHand(ctx, db, 1)
		if err != nil {
			t.Fatalf("StockOnHand: %v", err)
		}
		if stock != 6 {
			t.Fatalf("stock = %d, want 6", stock)
		}
	})

	t.Run("fails without touching stock when short", func(t *testing.T) {
		db := testdb.New(t)
		seedVariant(t, db, 1, 1)

		err := repo.Reserve(ctx, db, 1, 2)
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("err = %v, want ErrInsufficientStock", err)
		}
		stock, err := repo.StockOnHand(ctx, db, 1)
		if err != nil {
			t.Fatalf("StockOnHand: %v", err)
		}
		if stock != 1 {
			t.Fatalf("stock = %d, want 1", stock)
		}
	})

	t.Run("missing variant reads as insufficient", func(t *testing.T) {
		db := testdb.New(t)

		if err := repo.Reserve(ctx, db, 99, 1); !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("err = %v, want ErrInsufficientStock", err)
		}
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	t.Run("reserve then restore conserves stock", func(t *testing.T) {
		db := testdb.New(t)
		seedVariant(t, db, 1, 50)

		if err := repo.Reserve(ctx, db, 1, 2); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		if err := repo.Restore(ctx, db, 1, 2); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		stock, err := repo.StockOnHand(ctx, db, 1)
		if err != nil {
			t.Fatalf("StockOnHand: %v", err)
		}
		if stock != 50 {
			t.Fatalf("stock = %d, want 50", stock)
		}
	})

	t.Run("missing variant", func(t *testing.T) {
		db := testdb.New(t)

		if err := repo.Restore(ctx, db, 99, 1); !errors.Is(err, ErrVariantNotFound) {
			t.Fatalf("err = %v, want ErrVariantNotFound", err)
		}
	})
}

func TestNoOversell(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := NewRepository()

	const stock = 5
	const workers = 20
	seedVariant(t, db, 1, stock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Reserve(ctx, db, 1, 1)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientStock) {
				t.Errorf("Reserve: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != stock {
		t.Fatalf("successes = %d, want %d", successes, stock)
	}
	remaining, err := repo.StockOnHand(ctx, db, 1)
	if err != nil {
		t.Fatalf("StockOnHand: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining stock = %d, want 0", remaining)
	}
}
