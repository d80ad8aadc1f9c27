package quota

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDayKey(t *testing.T) {
	day := time.Date(2026, time.March, 7, 23, 59, 0, 0, time.Local)
	if got := DayKey(day); got != "20260307" {
		t.Fatalf("DayKey = %q, want 20260307", got)
	}
}

func TestCounterLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	now := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.Local)
	if err := store.Save(ctx, "20260306", 99); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Save(ctx, DayKey(now), 8); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := NewCounter(ctx, store, 10, now)
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	if c.Count() != 8 || c.Exhausted() {
		t.Fatalf("count = %d exhausted = %v", c.Count(), c.Exhausted())
	}

	c.Add(0)
	c.Add(-3)
	if c.Count() != 8 {
		t.Fatalf("non-positive increments must not change the count")
	}
	if got := c.Add(2); got != 10 || !c.Exhausted() {
		t.Fatalf("after Add(2) count=%d exhausted=%v", got, c.Exhausted())
	}

	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	days, err := store.Days(ctx)
	if err != nil {
		t.Fatalf("days: %v", err)
	}
	if days["20260307"] != 10 || days["20260306"] != 99 {
		t.Fatalf("stored counts = %v", days)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quota", "search-count.json")
	store := NewFileStore(path)

	if n, err := store.Load(ctx, "20260101"); err != nil || n != 0 {
		t.Fatalf("Load on missing file = %d, %v", n, err)
	}
	if err := store.Save(ctx, "20260101", 4); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "20260102", 7); err != nil {
		t.Fatalf("save: %v", err)
	}
	if n, _ := store.Load(ctx, "20260101"); n != 4 {
		t.Fatalf("previous day lost, got %d", n)
	}
	if n, _ := store.Load(ctx, "20260102"); n != 7 {
		t.Fatalf("Load = %d, want 7", n)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if n, err := store.Load(ctx, "20260102"); err != nil || n != 0 {
		t.Fatalf("corrupt file should read as empty, got %d, %v", n, err)
	}
}

func TestCounterFlushSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "search-count.json")
	store := NewFileStore(path)

	c, err := NewCounter(ctx, store, 5, time.Now())
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("unchanged counter should not write, stat err = %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("redis", "x"); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
