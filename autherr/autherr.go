// Package autherr defines the errors returned by the access gate and session packages.
package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthenticated indicates there is no valid session. Recoverable by signing in.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrBackendExchangeFailed indicates the identity provider accepted the user but the backend
	// rejected the exchange or could not be reached.
	ErrBackendExchangeFailed = errors.New("backend exchange failed")

	// ErrBackendUnreachable indicates a backend call did not complete before its deadline.
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrSessionExpired indicates the session expiry has passed.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnauthorized is returned for a 401 response from the backend.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned for a 403 response from the backend.
	ErrForbidden = errors.New("forbidden")

	// ErrAccessDenied is returned when a mutating request is blocked locally.
	ErrAccessDenied = errors.New("access denied")

	// ErrValidation is returned for malformed administration input.
	ErrValidation = errors.New("validation failed")

	// ErrRejected indicates the user's registration was rejected.
	ErrRejected = errors.New("registration rejected")

	// ErrConflict is returned when an administration write targets a stale version of a user record.
	ErrConflict = errors.New("conflict")
)

// BackendError describes a non-2xx response from the backend service.
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend responded %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("%s: backend responded %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is maps well known status codes onto the sentinel errors.
func (e *BackendError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrConflict:
		return e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusPreconditionFailed
	}

	return false
}

// ExchangeError wraps the cause of a failed backend exchange.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrBackendExchangeFailed, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

func (e *ExchangeError) Is(target error) bool {
	return target == ErrBackendExchangeFailed
}

// AccessDeniedError is returned by the request gate when a mutating request is blocked.
type AccessDeniedError struct {
	Method string
	URL    string
	Reason string
}

func (e *AccessDeniedError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("%s: %s", ErrAccessDenied, e.Reason)
	}

	return fmt.Sprintf("%s %s blocked: %s", e.Method, e.URL, e.Reason)
}

func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
