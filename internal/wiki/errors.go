package wiki

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the remote service found nothing for the input
	ErrNotFound = errors.New("not found")

	// ErrNoAcceptableResult means candidates existed but all failed a quality gate
	ErrNoAcceptableResult = errors.New("no acceptable result")

	// ErrCircuitOpen is returned while a host's circuit breaker rejects requests
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// StatusError is returned for a non-2xx HTTP response
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// APIError is a MediaWiki error object delivered in a 200 response
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

// IsTransport reports whether err is a transport or service failure,
// as opposed to an empty or rejected result.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNoAcceptableResult)
}

// isRetryable reports whether a failed request is worth another attempt
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, errDecode) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "maxlag" || apiErr.Code == "ratelimited"
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 429
	}

	// Network errors: connection refused, reset, timeouts
	return true
}

// countsAgainstBreaker reports whether a failure indicates an unhealthy host
func countsAgainstBreaker(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, errDecode) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 429
	}
	return true
}

var errDecode = errors.New("decode response")
