// Package fetch wraps a synchronous colly collector for JSON API calls with
// error classification and transport-level retries.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/scope-dorker/metrics"
	"github.com/gocolly/colly/v2"
)

const responseKey = "response"

// Options configures a Client.
type Options struct {
	// API labels metrics and logs, e.g. "hackerone" or "search".
	API             string
	Timeout         time.Duration
	UserAgent       string
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Client issues blocking GET requests through colly.
type Client struct {
	opts      Options
	collector *colly.Collector
	metrics   *metrics.Metrics
	sleep     func(context.Context, time.Duration) error
}

// New builds a client. m may be nil.
func New(opts Options, m *metrics.Metrics) *Client {
	collector := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(opts.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.ParseHTTPErrorResponse = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	return &Client{
		opts:      opts,
		collector: collector,
		metrics:   m,
		sleep:     sleepContext,
	}
}

// WithTransport swaps the underlying round tripper.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
}

// Get fetches rawURL. Timeouts, connection failures, 429 and 5xx responses
// are retried up to MaxRetries times with exponential backoff; everything
// else is returned immediately as a classified error.
func (c *Client) Get(ctx context.Context, rawURL string, hdr http.Header) (*Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.do(rawURL, hdr)
		if err == nil {
			return resp, nil
		}

		category := errorTypeLabel(err)
		c.metrics.IncError(c.opts.API, category)
		if !retryable(err) || attempt >= c.opts.MaxRetries {
			return nil, err
		}

		delay := c.backoff(attempt + 1)
		c.metrics.IncRetries(c.opts.API)
		slog.Debug("retrying request",
			slog.String("api", c.opts.API),
			slog.String("url", redactURL(rawURL)),
			slog.String("category", category),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// GetJSON fetches rawURL and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, hdr http.Header, v any) error {
	resp, err := c.Get(ctx, rawURL, hdr)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", c.opts.API, err)
	}
	return nil
}

func (c *Client) do(rawURL string, hdr http.Header) (*Response, error) {
	header := http.Header{}
	for k, v := range hdr {
		header[k] = append([]string(nil), v...)
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	if header.Get("User-Agent") == "" && c.opts.UserAgent != "" {
		header.Set("User-Agent", c.opts.UserAgent)
	}

	reqCtx := colly.NewContext()
	start := time.Now()
	c.metrics.IncRequest(c.opts.API)
	err := c.collector.Request(http.MethodGet, rawURL, nil, reqCtx, header)
	c.metrics.ObserveDuration(c.opts.API, time.Since(start))
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactURL(urlErr.URL)
		}
		return nil, classifyError(err, 0, nil)
	}

	r, ok := reqCtx.GetAny(responseKey).(*colly.Response)
	if !ok || r == nil {
		return nil, fmt.Errorf("%s: no response for %s", c.opts.API, redactURL(rawURL))
	}

	resp := &Response{StatusCode: r.StatusCode, Body: r.Body}
	if r.Headers != nil {
		resp.Header = *r.Headers
	}
	if r.StatusCode >= http.StatusBadRequest {
		slog.Debug("non-2xx response",
			slog.String("api", c.opts.API),
			slog.Int("status", r.StatusCode),
			slog.String("url", redactURL(rawURL)),
		)
		return nil, classifyError(nil, r.StatusCode, r.Body)
	}
	return resp, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := c.opts.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := c.opts.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
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

// redactURL hides the API key query parameter in logged URLs.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
