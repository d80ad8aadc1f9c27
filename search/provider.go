// Package search runs partitioned dorks against a search provider under a
// sliding request window, per-scope and daily ceilings and quota backoff.
package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxPageSize is the most results the provider returns per page.
	MaxPageSize = 10
	// MaxResultIndex is the deepest result the provider serves for a query;
	// start+num-1 may not pass it.
	MaxResultIndex = 100
)

// Request asks for one page of results. Start is 1-based.
type Request struct {
	Query string
	Num   int
	Start int
}

// Page is one page of results. NextStart is 0 on the last page.
type Page struct {
	Links     []string
	NextStart int
}

// SearchProvider executes a single page request.
type SearchProvider interface {
	Search(ctx context.Context, req Request) (*Page, error)
}

// APIError is an error reported by the provider in its response body.
type APIError struct {
	StatusCode int
	Message    string
	Reasons    []string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("search api %d: %s (%s)", e.StatusCode, msg, strings.Join(e.Reasons, ", "))
	}
	return fmt.Sprintf("search api %d: %s", e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// perMinuteQuota matches the provider's per-minute-per-user quota message,
// e.g. "Quota exceeded for quota metric 'Queries' and limit 'Queries per
// minute per user' ...".
var perMinuteQuota = regexp.MustCompile(`(?i)per[\s_-]*minute[\s_-]*per[\s_-]*user`)

// IsPerMinuteQuota reports whether err is the provider's per-minute quota
// error, the only error worth retrying.
func IsPerMinuteQuota(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return perMinuteQuota.MatchString(apiErr.Message)
}
