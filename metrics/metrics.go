// Package metrics exposes Prometheus collectors for the dorker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for both upstream APIs.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec

	SearchPagesTotal prometheus.Counter
	LinksFoundTotal  prometheus.Counter
	BackoffsTotal    prometheus.Counter
	WindowWaitsTotal prometheus.Counter
	DailySearchCount prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorker_http_requests_total",
			Help: "Total HTTP requests issued per upstream API.",
		},
		[]string{"api"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dorker_http_request_duration_seconds",
			Help:    "HTTP request latency per upstream API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"api"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorker_http_retries_total",
			Help: "Transport-level retry attempts per upstream API.",
		},
		[]string{"api"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dorker_http_errors_total",
			Help: "HTTP errors by upstream API and type.",
		},
		[]string{"api", "error_type"},
	)
	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dorker_search_pages_total",
		Help: "Search result pages fetched.",
	})
	links := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dorker_search_links_total",
		Help: "Unique links merged into result sets.",
	})
	backoffs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dorker_search_backoffs_total",
		Help: "Search requests retried after a per-minute quota error.",
	})
	waits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dorker_search_window_waits_total",
		Help: "Times the sliding request window blocked a search request.",
	})
	daily := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dorker_daily_search_count",
		Help: "Daily search quota consumed so far.",
	})

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, pages, links, backoffs, waits, daily)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		RetriesTotal:     retries,
		ErrorsTotal:      errorsTotal,
		SearchPagesTotal: pages,
		LinksFoundTotal:  links,
		BackoffsTotal:    backoffs,
		WindowWaitsTotal: waits,
		DailySearchCount: daily,
	}
}

// IncRequest increments the requests counter for an API.
func (m *Metrics) IncRequest(api string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(api).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(api string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(api).Observe(d.Seconds())
}

// IncRetries increments the transport retry counter.
func (m *Metrics) IncRetries(api string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(api).Inc()
}

// IncError increments the error counter for a type label.
func (m *Metrics) IncError(api, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(api, errorType).Inc()
}

// IncSearchPage counts one fetched result page.
func (m *Metrics) IncSearchPage() {
	if m == nil {
		return
	}
	m.SearchPagesTotal.Inc()
}

// AddLinks counts newly merged links.
func (m *Metrics) AddLinks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LinksFoundTotal.Add(float64(n))
}

// IncBackoff counts a quota backoff retry.
func (m *Metrics) IncBackoff() {
	if m == nil {
		return
	}
	m.BackoffsTotal.Inc()
}

// IncWindowWait counts a blocked window acquisition.
func (m *Metrics) IncWindowWait() {
	if m == nil {
		return
	}
	m.WindowWaitsTotal.Inc()
}

// SetDailyCount publishes the daily quota usage.
func (m *Metrics) SetDailyCount(n int) {
	if m == nil {
		return
	}
	m.DailySearchCount.Set(float64(n))
}
