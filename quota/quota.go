// Package quota tracks the daily search count against a configured ceiling
// and persists it across runs.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DateFormat keys counts by local calendar day.
const DateFormat = "20060102"

// Store persists date-keyed search counts.
type Store interface {
	Load(ctx context.Context, day string) (int, error)
	Save(ctx context.Context, day string, count int) error
	Close() error
}

// DayKey formats t as a store key.
func DayKey(t time.Time) string {
	return t.Local().Format(DateFormat)
}

// Counter is today's search count. It is safe for concurrent use; the count
// never decreases.
type Counter struct {
	store Store
	day   string
	limit int

	mu    sync.Mutex
	count int
	dirty bool
}

// NewCounter loads the count stored for the day containing now.
func NewCounter(ctx context.Context, store Store, limit int, now time.Time) (*Counter, error) {
	day := DayKey(now)
	count, err := store.Load(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load search count for %s: %w", day, err)
	}
	slog.Debug("loaded search count", slog.String("day", day), slog.Int("count", count), slog.Int("limit", limit))
	return &Counter{
		store: store,
		day:   day,
		limit: limit,
		count: count,
	}, nil
}

// Day returns the counter's day key.
func (c *Counter) Day() string {
	return c.day
}

// Limit returns the daily ceiling.
func (c *Counter) Limit() int {
	return c.limit
}

// Count returns the current count.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Exhausted reports whether the ceiling has been reached.
func (c *Counter) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count >= c.limit
}

// Add increments the count by n and returns the new total. Non-positive n
// is ignored.
func (c *Counter) Add(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.count += n
		c.dirty = true
	}
	return c.count
}

// Flush writes the count back to the store if it changed.
func (c *Counter) Flush(ctx context.Context) error {
	c.mu.Lock()
	count, dirty := c.count, c.dirty
	c.mu.Unlock()
	if !dirty {
		return nil
	}

	if err := c.store.Save(ctx, c.day, count); err != nil {
		return fmt.Errorf("save search count for %s: %w", c.day, err)
	}

	c.mu.Lock()
	if c.count == count {
		c.dirty = false
	}
	c.mu.Unlock()
	return nil
}

// Open returns the store for backend ("sqlite" or "json") at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "sqlite":
		return OpenSQLite(path)
	case "json":
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported quota backend: %s", backend)
	}
}
