package youtrack

import (
	"errors"
	"fmt"
	"time"
)

// NetworkError indicates the request never produced a usable response
// (connection failure, timeout, DNS).
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string { return e.Message }
func (e *NetworkError) Unwrap() error { return e.Err }

// AuthenticationError covers 401 and 403 responses.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// NotFoundError indicates the requested resource does not exist, as opposed
// to a transient failure reaching it.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.Resource)
}

// RateLimitError carries the server-advertised retry-after duration.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// ValidationError indicates malformed input, either in a request we built or
// in one the caller gave us.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ServerError covers 5xx responses.
type ServerError struct {
	Message    string
	StatusCode int
}

func (e *ServerError) Error() string { return e.Message }

// UnknownError is the catch-all for failures that fit no other class.
type UnknownError struct {
	Message string
}

func (e *UnknownError) Error() string { return e.Message }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
