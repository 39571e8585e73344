package llm

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind tags every failure the gateway can return. Callers switch on
// the kind instead of inspecting provider SDK error types.
type FailureKind string

const (
	KindValidationFailure FailureKind = "validation_failure"
	KindAuthFailure       FailureKind = "auth_failure"
	KindRateLimited       FailureKind = "rate_limited"
	KindTransient         FailureKind = "transient"
	KindInvalidRequest    FailureKind = "invalid_request"
	KindMalformedResponse FailureKind = "malformed_response"
)

// Error is a classified completion failure. Message is generic and safe to
// surface to callers; the wrapped cause is for the operator log sink only.
type Error struct {
	Kind       FailureKind
	Message    string
	RetryAfter time.Duration
	cause      error
}

func NewError(kind FailureKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("llm: %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("llm: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether a bounded retry may resolve the failure.
// Auth and invalid-request failures are deterministic; retrying wastes quota.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTransient
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (FailureKind, bool) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind, true
	}
	return "", false
}
