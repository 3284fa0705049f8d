package bbolt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/curmorpheus/safesite/storage"
	"go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "safesite-test.db")
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestBBoltStore(t *testing.T) {
	s := newTestStore(t)

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

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get("queue", "nope")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		_, err = s.Get("nobucket", "k1")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing bucket, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		s.Put("queue", "k2", []byte("b"))
		keys, err := s.List("queue")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(keys) != 2 {
			t.Errorf("expected 2 keys, got %v", keys)
		}
	})

	t.Run("ListMissingBucket", func(t *testing.T) {
		keys, err := s.List("empty")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("expected no keys, got %v", keys)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete("queue", "k1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete("queue", "k1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on double delete, got %v", err)
		}
	})

	t.Run("BucketIsolation", func(t *testing.T) {
		s.Put("a", "shared", []byte("1"))
		s.Put("b", "shared", []byte("2"))
		got, err := s.Get("a", "shared")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "1" {
			t.Errorf("bucket a value leaked: %q", got)
		}
	})
}

func TestBBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safesite-reopen.db")

	s, err := NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put("queue", "persisted", []byte("still here")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get("queue", "persisted")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "still here" {
		t.Errorf("expected persisted value, got %q", got)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
}
