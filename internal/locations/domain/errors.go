package domain

import (
	"errors"
	"fmt"
	"time"
)

// NetworkError is a transient transport failure talking to a provider.
// StatusCode is zero when no response arrived.
type NetworkError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d", e.Provider, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return e.Provider + ": network error"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError is a NetworkError for HTTP 429. RetryAfter is zero when
// the provider gave no hint.
type RateLimitError struct {
	NetworkError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return e.Provider + ": rate limited"
}

// Unwrap exposes the embedded NetworkError so errors.As finds either type.
func (e *RateLimitError) Unwrap() error { return &e.NetworkError }

// NoMatchError means the input was well-formed but nothing could be located.
type NoMatchError struct {
	Input string
}

func (e *NoMatchError) Error() string {
	if e.Input == "" {
		return "no location match"
	}
	return fmt.Sprintf("no location match for %q", e.Input)
}

// Is lets errors.Is(err, &NoMatchError{}) match any NoMatchError.
func (e *NoMatchError) Is(target error) bool {
	_, ok := target.(*NoMatchError)
	return ok
}

// InvalidCoordinateError is a parsed coordinate outside WGS84 bounds or not a
// number. It counts as a NoMatchError.
type InvalidCoordinateError struct {
	Latitude  float64
	Longitude float64
	Raw       string
}

func (e *InvalidCoordinateError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("invalid coordinate %q", e.Raw)
	}
	return fmt.Sprintf("invalid coordinate %v,%v", e.Latitude, e.Longitude)
}

func (e *InvalidCoordinateError) Is(target error) bool {
	switch target.(type) {
	case *InvalidCoordinateError, *NoMatchError:
		return true
	}
	return false
}

// ErrNoMatch is a convenience target for errors.Is.
var ErrNoMatch error = &NoMatchError{}

// IsTransient reports whether err is worth one retry.
func IsTransient(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// RetryAfter extracts a provider backoff hint from err, or zero.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
