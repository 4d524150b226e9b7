// internal/api/errors.go
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an explicit backend rejection (4xx validation, 404, ...).
// Message carries the backend's {message} body verbatim when present,
// otherwise the HTTP status text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API Error: %s", http.StatusText(e.Status))
}

// TimeoutError marks a request that exceeded its deadline. Callers treat
// it as a transient signal that the backend may still be waking up.
type TimeoutError struct {
	URL   string
	Cause error
}

func (e *TimeoutError) Error() string { return "request timed out" }
func (e *TimeoutError) Unwrap() error { return e.Cause }

// NetworkError is a transport-level failure (DNS, connection refused).
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Cause) }
func (e *NetworkError) Unwrap() error { return e.Cause }

// AuthError means a 401 persisted after one refresh-and-retry attempt.
// Recovering requires re-authentication through the identity collaborator.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string { return "authentication required" }
func (e *AuthError) Unwrap() error { return e.Cause }

// IsTransient reports whether the failure is worth presenting as "the
// server may be asleep" rather than a hard error.
func IsTransient(err error) bool {
	var te *TimeoutError
	var ne *NetworkError
	return errors.As(err, &te) || errors.As(err, &ne)
}
