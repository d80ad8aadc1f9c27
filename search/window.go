package search

import (
	"context"
	"sync"
	"time"

	"github.com/aluiziolira/scope-dorker/metrics"
)

// Clock is the time source for pacing and backoff.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Window admits at most limit acquisitions in any trailing span.
type Window struct {
	limit   int
	span    time.Duration
	clock   Clock
	metrics *metrics.Metrics

	mu     sync.Mutex
	stamps []time.Time
}

// NewWindow builds a window. clock and m may be nil.
func NewWindow(limit int, span time.Duration, clock Clock, m *metrics.Metrics) *Window {
	if limit <= 0 {
		limit = 1
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Window{
		limit:   limit,
		span:    span,
		clock:   clock,
		metrics: m,
		stamps:  make([]time.Time, 0, limit),
	}
}

// Acquire takes a slot, sleeping until the oldest admitted request leaves
// the window when it is full.
func (w *Window) Acquire(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		now := w.clock.Now()
		w.evict(now)
		if len(w.stamps) < w.limit {
			w.stamps = append(w.stamps, now)
			return nil
		}

		wait := w.stamps[0].Add(w.span).Sub(now)
		w.metrics.IncWindowWait()
		if err := w.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// InFlight returns the number of requests inside the window at now.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(w.clock.Now())
	return len(w.stamps)
}

func (w *Window) evict(now time.Time) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= w.span {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
