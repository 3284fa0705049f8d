package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/curmorpheus/safesite/storage"
)

func TestMemoryStore(t *testing.T) {
	s := NewStore()

	t.Run("PutGet", func(t *testing.T) {
		if err := s.Put("accounts", "k1", []byte("v1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get("accounts", "k1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "v1" {
			t.Errorf("expected v1, got %q", got)
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		s.Put("accounts", "copy", []byte("original"))
		got, _ := s.Get("accounts", "copy")
		got[0] = 'X'
		again, _ := s.Get("accounts", "copy")
		if string(again) != "original" {
			t.Errorf("stored value was mutated through returned slice")
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		if err := s.Delete("accounts", "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListSorted", func(t *testing.T) {
		s.Put("sorted", "b", nil)
		s.Put("sorted", "a", nil)
		s.Put("sorted", "c", nil)
		keys, err := s.List("sorted")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
			t.Errorf("expected sorted keys, got %v", keys)
		}
	})
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n)
			s.Put("concurrent", key, []byte(key))
			s.Get("concurrent", key)
		}(i)
	}
	wg.Wait()

	keys, err := s.List("concurrent")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 50 {
		t.Errorf("expected 50 keys, got %d", len(keys))
	}
}
