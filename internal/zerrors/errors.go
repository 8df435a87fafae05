package zerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for handler mapping and user messaging.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindNetwork       Kind = "network"
	KindProvider      Kind = "provider"
	KindStorage       Kind = "storage"
	KindExport        Kind = "export"
	KindInternal      Kind = "internal"
)

// Error is the structured error used across the service. HTTPStatus is the
// status a handler should answer with; Retryable marks failures a user may
// reasonably re-submit (the service itself never retries automatically).
type Error struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewConfigurationError reports an unusable configuration. Fatal at startup.
func NewConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// NewValidationError reports malformed user input; recovered by correction.
func NewValidationError(message string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: message, HTTPStatus: http.StatusBadRequest, Cause: cause}
}

// NewNotFoundError reports an unknown resource id.
func NewNotFoundError(resource, id string) *Error {
	return &Error{
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s %s not found", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewNetworkError reports an unreachable or timed-out upstream. The user
// may retry; the service does not.
func NewNetworkError(message string, cause error) *Error {
	return &Error{
		Kind:       KindNetwork,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewProviderError reports a rejection by the AI provider; the upstream
// message is surfaced verbatim.
func NewProviderError(upstreamStatus int, message string) *Error {
	return &Error{
		Kind:       KindProvider,
		Message:    message,
		HTTPStatus: upstreamStatus,
		Retryable:  upstreamStatus == http.StatusTooManyRequests || upstreamStatus >= 500,
	}
}

// NewStorageError reports a persistence failure; session state is unchanged.
func NewStorageError(operation string, cause error) *Error {
	return &Error{
		Kind:       KindStorage,
		Message:    fmt.Sprintf("storage operation %s failed", operation),
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewExportError reports a failed handoff to the external 3D tool; the
// stored session is unaffected.
func NewExportError(message string, cause error) *Error {
	return &Error{
		Kind:       KindExport,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// KindOf returns the Kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) && e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}
