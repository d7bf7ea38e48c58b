package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func openSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStores_Contract(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore("") },
		"sqlite": func(t *testing.T) Store {
			return openSQLite(t, filepath.Join(t.TempDir(), "session.db"))
		},
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			if got, err := s.Get(ctx); err != nil || got != "" {
				t.Fatalf("empty store Get() = %q, %v", got, err)
			}
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear on empty store: %v", err)
			}
			if err := s.Set(ctx, "tok-1"); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "tok-2"); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.Get(ctx); got != "tok-2" {
				t.Errorf("Get() = %q, want tok-2", got)
			}
			if err := s.Set(ctx, ""); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.Get(ctx); got != "" {
				t.Errorf("Set(\"\") should clear, got %q", got)
			}
			_ = s.Set(ctx, "tok-3")
			if err := s.Clear(ctx); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.Get(ctx); got != "" {
				t.Errorf("after Clear Get() = %q", got)
			}
		})
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.db")

	first, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set(ctx, "persisted"); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second := openSQLite(t, path)
	if got, _ := second.Get(ctx); got != "persisted" {
		t.Errorf("after reopen Get() = %q, want persisted", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("session file mode = %v, want owner-only", perm)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("seed")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, "x")
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Get(ctx)
		}()
	}
	wg.Wait()
	if got, _ := s.Get(ctx); got != "x" {
		t.Errorf("Get() = %q, want x", got)
	}
}
