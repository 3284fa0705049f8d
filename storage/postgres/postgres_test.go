package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curmorpheus/safesite/storage"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dsn := os.Getenv("SAFESITE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SAFESITE_TEST_POSTGRES_DSN not set; skipping PostgreSQL tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("could not connect to postgres: %v", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("could not ensure schema: %v", err)
	}

	// Clean table for test isolation.
	pool.Exec(ctx, "DELETE FROM records") //nolint:errcheck

	return NewStore(pool), func() {
		pool.Exec(ctx, "DELETE FROM records") //nolint:errcheck
		pool.Close()
	}
}

func TestPostgresStore(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	t.Run("PutGet", func(t *testing.T) {
		if err := s.Put("queue", "k1", []byte("payload")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get("queue", "k1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "payload" {
			t.Errorf("expected payload, got %q", got)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s.Put("queue", "k1", []byte("updated"))
		got, err := s.Get("queue", "k1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "updated" {
			t.Errorf("expected updated, got %q", got)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get("queue", "nope")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		s.Put("queue", "k2", []byte("b"))
		keys, err := s.List("queue")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(keys) != 2 {
			t.Errorf("expected 2 keys, got %v", keys)
		}

		if err := s.Delete("queue", "k2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete("queue", "k2"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on double delete, got %v", err)
		}
	})
}
