package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/scope-dorker/dork"
	"github.com/aluiziolira/scope-dorker/metrics"
	"github.com/aluiziolira/scope-dorker/models"
)

const (
	// DefaultRequestsPerMinute is the provider's per-minute request ceiling.
	DefaultRequestsPerMinute = 100
	// WindowSpan is the length of the sliding request window.
	WindowSpan = time.Minute
)

// Quota is the daily search budget shared by every scope in a run.
type Quota interface {
	Exhausted() bool
	Add(n int) int
}

// Options configures a Client.
type Options struct {
	// ResultLimit caps the unique links gathered per scope.
	ResultLimit int
	// BackoffBase is the first delay after a per-minute quota error; each
	// further attempt doubles it.
	BackoffBase time.Duration
	// MaxAttempts bounds the attempts for one page, first try included.
	MaxAttempts int
	// Window paces requests; nil builds a 100/minute window on Clock.
	Window *Window
	Clock  Clock
}

// Client executes dorks sequentially, merging unique links per scope.
type Client struct {
	provider SearchProvider
	quota    Quota
	opts     Options
	window   *Window
	clock    Clock
	metrics  *metrics.Metrics
}

// NewClient builds a client. m may be nil.
func NewClient(provider SearchProvider, quota Quota, opts Options, m *metrics.Metrics) *Client {
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = 20
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	window := opts.Window
	if window == nil {
		window = NewWindow(DefaultRequestsPerMinute, WindowSpan, clock, m)
	}

	return &Client{
		provider: provider,
		quota:    quota,
		opts:     opts,
		window:   window,
		clock:    clock,
		metrics:  m,
	}
}

// Dork partitions the scope's assets for query and executes the result.
func (c *Client) Dork(ctx context.Context, query string, scope *models.Scope) (*models.SearchResult, error) {
	dorks := dork.ForScope(query, scope)
	if len(dorks) == 0 {
		slog.Info("scope has no url assets, nothing to search", slog.String("program", scope.Name))
		return nil, nil
	}
	return c.Execute(ctx, query, dorks, scope)
}

// Execute runs dorks in order for scope. Each dork is paged until the scope
// holds ResultLimit links, the daily quota is used up, or the provider has
// no further page. It returns nil when no link was found. Every error is a
// *models.FatalError.
//
// The daily quota is charged one unit per unique link merged.
func (c *Client) Execute(ctx context.Context, query string, dorks []string, scope *models.Scope) (*models.SearchResult, error) {
	links := make(map[string]struct{})

	for i, d := range dorks {
		if c.stopped(links) {
			break
		}
		slog.Debug("running dork",
			slog.String("program", scope.Name),
			slog.Int("dork", i+1),
			slog.Int("dorks", len(dorks)),
			slog.Int("length", len(d)),
		)
		if err := c.run(ctx, d, links); err != nil {
			return nil, models.Fatal("search program "+scope.Name, err)
		}
	}

	if c.quota.Exhausted() {
		slog.Warn("daily search limit reached", slog.String("program", scope.Name))
	}
	if len(links) == 0 {
		slog.Info("no results", slog.String("program", scope.Name))
		return nil, nil
	}

	slog.Info("search complete", slog.String("program", scope.Name), slog.Int("links", len(links)))
	return models.NewSearchResult(scope, query, links), nil
}

func (c *Client) stopped(links map[string]struct{}) bool {
	return len(links) >= c.opts.ResultLimit || c.quota.Exhausted()
}

func (c *Client) run(ctx context.Context, d string, links map[string]struct{}) error {
	start := 1
	for !c.stopped(links) {
		num := min(MaxPageSize, c.opts.ResultLimit-len(links))
		if room := MaxResultIndex - start + 1; room < num {
			num = room
		}
		if num <= 0 {
			return nil
		}

		page, err := c.fetchPage(ctx, Request{Query: d, Num: num, Start: start})
		if err != nil {
			return err
		}

		added := 0
		for _, link := range page.Links {
			if _, ok := links[link]; ok || link == "" {
				continue
			}
			links[link] = struct{}{}
			added++
		}
		if added > 0 {
			c.metrics.AddLinks(added)
			c.metrics.SetDailyCount(c.quota.Add(added))
		}

		if page.NextStart <= start {
			return nil
		}
		start = page.NextStart
	}
	return nil
}

func (c *Client) fetchPage(ctx context.Context, req Request) (*Page, error) {
	for attempt := 1; ; attempt++ {
		if err := c.window.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("wait for request window: %w", err)
		}

		page, err := c.provider.Search(ctx, req)
		if err == nil {
			c.metrics.IncSearchPage()
			return page, nil
		}
		if !IsPerMinuteQuota(err) {
			return nil, err
		}
		if attempt >= c.opts.MaxAttempts {
			return nil, fmt.Errorf("per-minute quota still exceeded after %d attempts: %w", attempt, err)
		}

		delay := c.backoff(attempt)
		c.metrics.IncBackoff()
		slog.Warn("per-minute search quota exceeded, backing off",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		if err := c.clock.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	return c.opts.BackoffBase * time.Duration(1<<(attempt-1))
}
