package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError carries a non-2xx response so callers can inspect the body.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// kinded is implemented by every classified transport error; kind is the
// metrics label.
type kinded interface {
	kind() string
}

func describe(label string, err error) string {
	if err == nil {
		return label
	}
	return label + ": " + err.Error()
}

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct{ Err error }

func (e ErrTimeout) Error() string { return describe("timeout", e.Err) }
func (e ErrTimeout) Unwrap() error { return e.Err }
func (ErrTimeout) kind() string    { return "timeout" }

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct{ Err error }

func (e ErrConnection) Error() string { return describe("connection", e.Err) }
func (e ErrConnection) Unwrap() error { return e.Err }
func (ErrConnection) kind() string    { return "connection" }

// ErrUnauthorized indicates rejected credentials (HTTP 401).
type ErrUnauthorized struct{ Err error }

func (e ErrUnauthorized) Error() string { return describe("unauthorized", e.Err) }
func (e ErrUnauthorized) Unwrap() error { return e.Err }
func (ErrUnauthorized) kind() string    { return "unauthorized" }

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct{ Err error }

func (e ErrForbidden) Error() string { return describe("forbidden", e.Err) }
func (e ErrForbidden) Unwrap() error { return e.Err }
func (ErrForbidden) kind() string    { return "forbidden" }

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct{ Err error }

func (e ErrNotFound) Error() string { return describe("not_found", e.Err) }
func (e ErrNotFound) Unwrap() error { return e.Err }
func (ErrNotFound) kind() string    { return "not_found" }

// ErrRateLimited indicates the upstream rate-limited the request (HTTP 429).
type ErrRateLimited struct{ Err error }

func (e ErrRateLimited) Error() string { return describe("rate_limited", e.Err) }
func (e ErrRateLimited) Unwrap() error { return e.Err }
func (ErrRateLimited) kind() string    { return "rate_limited" }

// ErrServer indicates an upstream failure (HTTP 5xx).
type ErrServer struct{ Err error }

func (e ErrServer) Error() string { return describe("server", e.Err) }
func (e ErrServer) Unwrap() error { return e.Err }
func (ErrServer) kind() string    { return "server" }

// StatusBody returns the body of the response behind err, if any.
func StatusBody(err error) ([]byte, int, bool) {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Body, status.StatusCode, true
	}
	return nil, 0, false
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var k kinded
	if errors.As(err, &k) {
		return k.kind()
	}
	return "other"
}

// retryable reports whether a classified error is worth another attempt.
func retryable(err error) bool {
	switch errorTypeLabel(err) {
	case "timeout", "connection", "rate_limited", "server":
		return true
	default:
		return false
	}
}

func classifyError(err error, statusCode int, body []byte) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if err == nil && statusCode >= http.StatusBadRequest {
		status := &StatusError{StatusCode: statusCode, Body: body}
		switch {
		case statusCode == http.StatusUnauthorized:
			return ErrUnauthorized{Err: status}
		case statusCode == http.StatusForbidden:
			return ErrForbidden{Err: status}
		case statusCode == http.StatusNotFound:
			return ErrNotFound{Err: status}
		case statusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: status}
		case statusCode >= http.StatusInternalServerError:
			return ErrServer{Err: status}
		default:
			return status
		}
	}

	return err
}
