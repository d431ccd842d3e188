package ratatoskr

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode is the closed taxonomy of error kinds a provider or the
// dispatcher may produce. The set is fixed: adding a new member is a
// breaking change because [Classify]-style consumers switch over it
// exhaustively.
type ErrorCode int

const (
	ErrNetwork ErrorCode = iota
	ErrAPI
	ErrRateLimited
	ErrAuthFailed
	ErrModelNotFound
	ErrNoProvider
	ErrModelNotAvailable
	ErrStream
	ErrJSON
	ErrInvalidInput
	ErrConfiguration
	ErrNotImplemented
	ErrUnsupported
	ErrUnsupportedParameter
	ErrEmptyResponse
	ErrContentFiltered
	ErrContextLengthExceeded
)

// String returns a short machine-stable name for the error code, used in log
// attributes and Display-style formatting.
func (c ErrorCode) String() string {
	switch c {
	case ErrNetwork:
		return "network"
	case ErrAPI:
		return "api"
	case ErrRateLimited:
		return "rate_limited"
	case ErrAuthFailed:
		return "auth_failed"
	case ErrModelNotFound:
		return "model_not_found"
	case ErrNoProvider:
		return "no_provider"
	case ErrModelNotAvailable:
		return "model_not_available"
	case ErrStream:
		return "stream"
	case ErrJSON:
		return "json"
	case ErrInvalidInput:
		return "invalid_input"
	case ErrConfiguration:
		return "configuration"
	case ErrNotImplemented:
		return "not_implemented"
	case ErrUnsupported:
		return "unsupported"
	case ErrUnsupportedParameter:
		return "unsupported_parameter"
	case ErrEmptyResponse:
		return "empty_response"
	case ErrContentFiltered:
		return "content_filtered"
	case ErrContextLengthExceeded:
		return "context_length_exceeded"
	default:
		return "unknown"
	}
}

// Error is the single concrete error type every gateway operation, provider
// capability, and dispatcher stage returns through. Its Code field is the
// sole authority consulted by retry and fallback decisions.
type Error struct {
	Code ErrorCode

	// Message is a concise, human-readable description.
	Message string

	// Status is the HTTP-ish status code for ErrAPI, used by the retry
	// decorator's transient-status set.
	Status int

	// RetryAfter is a server-advised retry delay, set for ErrRateLimited and
	// sometimes ErrAPI.
	RetryAfter time.Duration

	// Parameter and Reason are set for ErrUnsupportedParameter.
	Parameter ParameterName
	Reason    string

	// Limit is set for ErrContextLengthExceeded.
	Limit int

	// Cause preserves the underlying error for diagnostics without exposing
	// it to Code-based branching.
	Cause error
}

// Error implements the error interface with a concise Display-style form.
func (e *Error) Error() string {
	switch e.Code {
	case ErrRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
		}
		return "rate limited"
	case ErrAPI:
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	case ErrUnsupportedParameter:
		return fmt.Sprintf("unsupported parameter %q: %s", e.Parameter, e.Reason)
	case ErrContextLengthExceeded:
		return fmt.Sprintf("context length exceeded: limit %d", e.Limit)
	default:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Code, e.Message)
		}
		return e.Code.String()
	}
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Code, letting callers
// write errors.Is(err, ratatoskr.ErrModelNotAvailableErr) style checks via the
// sentinel helpers below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code && other.Message == "" && other.Parameter == ParameterName{}
	}
	return false
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) a *Error, and
// reports ok=false otherwise — the seam external provider adapters use to
// translate arbitrary errors into the closed taxonomy.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// sentinel constructs a zero-value *Error of the given code, used both as a
// target for errors.Is and as a documentation anchor.
func sentinel(code ErrorCode) error { return &Error{Code: code} }

// Sentinel errors for the taxonomy members that carry no required payload,
// for terse errors.Is(err, ratatoskr.ErrNoProviderErr) checks.
var (
	ErrNoProviderErr         = sentinel(ErrNoProvider)
	ErrModelNotAvailableErr  = sentinel(ErrModelNotAvailable)
	ErrInvalidInputErr       = sentinel(ErrInvalidInput)
	ErrModelNotFoundErr      = sentinel(ErrModelNotFound)
	ErrAuthFailedErr         = sentinel(ErrAuthFailed)
	ErrEmptyResponseErr      = sentinel(ErrEmptyResponse)
	ErrContentFilteredErr    = sentinel(ErrContentFiltered)
	ErrNotImplementedErr     = sentinel(ErrNotImplemented)
	ErrUnsupportedErr        = sentinel(ErrUnsupported)
)

// NewError builds a plain *Error with a message, for codes that carry no
// further structured payload.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewAPIError builds an ErrAPI error with an HTTP-ish status code.
func NewAPIError(status int, message string) *Error {
	return &Error{Code: ErrAPI, Status: status, Message: message}
}

// NewRateLimitedError builds an ErrRateLimited error, optionally carrying a
// server-advised retry-after hint.
func NewRateLimitedError(retryAfter time.Duration) *Error {
	return &Error{Code: ErrRateLimited, RetryAfter: retryAfter}
}

// NewUnsupportedParameterError builds an ErrUnsupportedParameter error for
// parameter p with a human-readable reason.
func NewUnsupportedParameterError(p ParameterName, reason string) *Error {
	return &Error{Code: ErrUnsupportedParameter, Parameter: p, Reason: reason}
}

// NewContextLengthExceededError builds an ErrContextLengthExceeded error
// carrying the model's context window limit.
func NewContextLengthExceededError(limit int) *Error {
	return &Error{Code: ErrContextLengthExceeded, Limit: limit}
}

// WrapError wraps an arbitrary error under the given code, preserving it as
// Cause for diagnostics.
func WrapError(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Message: cause.Error(), Cause: cause}
}
