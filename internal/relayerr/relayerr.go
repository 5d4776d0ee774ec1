// Package relayerr enumerates the error taxonomy the dispatch orchestrator
// uses to decide whether to retry, mutate account-pool state, or surface a
// response to the client. Errors are values, not panics: adapters and the
// account pool return an *Error and the orchestrator is the sole authority on
// what happens next.
package relayerr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for retry/mutation purposes.
type Kind int

const (
	// ConfigMissing means no accounts exist for the selected backend.
	ConfigMissing Kind = iota
	// Unavailable means every account is cooling and the shortest wait
	// exceeds the abort threshold.
	Unavailable
	// Unauthorized means the backend returned 401/403; the account is latched invalid.
	Unauthorized
	// RateLimited means the backend returned 429; the account is put on cooldown.
	RateLimited
	// Upstream is any other non-2xx backend response.
	Upstream
	// Transport is a network-level failure reaching the backend.
	Transport
	// ContractViolation means the canonical request itself is malformed.
	ContractViolation
	// StreamEmpty means the backend produced no content at all.
	StreamEmpty
)

func (k Kind) String() string {
	switch k {
	case ConfigMissing:
		return "ConfigMissing"
	case Unavailable:
		return "Unavailable"
	case Unauthorized:
		return "Unauthorized"
	case RateLimited:
		return "RateLimited"
	case Upstream:
		return "Upstream"
	case Transport:
		return "Transport"
	case ContractViolation:
		return "ContractViolation"
	case StreamEmpty:
		return "StreamEmpty"
	default:
		return "Unknown"
	}
}

// Error carries enough context for the orchestrator to classify and, if
// exhausted, surface the failure to the client.
type Error struct {
	Kind       Kind
	StatusCode int           // HTTP status to report to the client, if surfaced.
	RetryAfter time.Duration // Backend-supplied or defaulted cooldown, for RateLimited.
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, statusCode int, message string) *Error {
	return &Error{Kind: kind, StatusCode: statusCode, Message: message}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind Kind, statusCode int, message string, cause error) *Error {
	return &Error{Kind: kind, StatusCode: statusCode, Message: message, Cause: cause}
}

// WithRetryAfter attaches a retry-after duration and returns the receiver for chaining.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// As reports whether err is (or wraps) a *relayerr.Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
