package sequence

import (
	"context"
	"fmt"
	"testing"

	"github.com/nilemart/backend/internal/testdb"
)

func TestNext(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := NewRepository()

	t.Run("formats with year and zero-padded counter", func(t *testing.T) {
		got, err := repo.Next(ctx, db, 2025)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != "ORD-2025-000001" {
			t.Fatalf("got %q, want ORD-2025-000001", got)
		}
	})

	t.Run("increments within a year", func(t *testing.T) {
		got, err := repo.Next(ctx, db, 2025)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != "ORD-2025-000002" {
			t.Fatalf("got %q, want ORD-2025-000002", got)
		}
	})

	t.Run("years count independently", func(t *testing.T) {
		got, err := repo.Next(ctx, db, 2026)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != "ORD-2026-000001" {
			t.Fatalf("got %q, want ORD-2026-000001", got)
		}
	})
}

func TestNextConcurrentUniqueness(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	repo := NewRepository()

	const n = 25
	results := make(chan string, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		go func() {
			number, err := repo.Next(ctx, db, 2025)
			if err != nil {
				errs <- err
				return
			}
			results <- number
		}()
	}

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("Next: %v", err)
		case number := <-results:
			if seen[number] {
				t.Fatalf("duplicate order number %q", number)
			}
			seen[number] = true
		}
	}

	if len(seen) != n {
		t.Fatalf("got %d distinct numbers, want %d", len(seen), n)
	}
	if !seen[fmt.Sprintf("ORD-%04d-%06d", 2025, n)] {
		t.Fatalf("highest number ORD-2025-%06d missing", n)
	}
}
