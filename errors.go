package paperdash

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Error represents an API error (a non-2xx HTTP response).
type Error struct {
	StatusCode int
	Message    string
	Op         string // Operation that failed (e.g., "GetPaper")
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// TimeoutError is returned when a request exceeds its time budget.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	msg := "request timeout"
	if e.Timeout > 0 {
		msg = fmt.Sprintf("request timeout after %s", e.Timeout)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// TransportError is returned when the server could not be reached or the
// connection failed mid-response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is returned when a response body or stream payload cannot be
// decoded.
type ParseError struct {
	Op   string
	Data string // offending payload, truncated
	Err  error
}

func (e *ParseError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: parse: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports client-side input that was rejected before any
// request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsNotFound reports whether err indicates a 404 response.
func IsNotFound(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsTimeout reports whether err is a *TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// Retryable reports whether repeating the same call could succeed:
// transport failures, timeouts and 5xx/408/429 responses.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 408 || apiErr.StatusCode == 429
	}
	var transportErr *TransportError
	return IsTimeout(err) || errors.As(err, &transportErr)
}

// classifyDoError converts an error from http.Client.Do into the package
// taxonomy. Cancellation by the caller is passed through untouched.
func classifyDoError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Timeout: timeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Timeout: timeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransportError{Err: err}
}

// wrapError tags an error with an operation name. Typed errors carry the
// operation in their Op field; everything else is wrapped with %w.
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		apiErr.Op = op
		return apiErr
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		timeoutErr.Op = op
		return timeoutErr
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		transportErr.Op = op
		return transportErr
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		parseErr.Op = op
		return parseErr
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
