package xtream

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrMissingConfiguration indicates neither a playlist nor a raw config was supplied
	ErrMissingConfiguration = errors.New("xtream: no playlist or raw configuration supplied")
	// ErrConfigurationMismatch indicates the playlist is not an Xtream playlist
	ErrConfigurationMismatch = errors.New("xtream: playlist is not an xtream playlist")
	// ErrNotInitialized indicates a call on a client that was never initialized
	ErrNotInitialized = errors.New("xtream: client not initialized")
	// ErrRetriesExhausted indicates every attempt of a call failed
	ErrRetriesExhausted = errors.New("xtream: retries exhausted")
	// ErrInvalidPayload indicates a successful response whose body is not JSON
	ErrInvalidPayload = errors.New("xtream: invalid payload")
)

// UpstreamError is a non-2xx response from the provider.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("xtream upstream error: status %d", e.StatusCode)
}

// IsNotFound checks if the error indicates a not found response
func (e *UpstreamError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *UpstreamError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// TransportError is a failure that produced no response at all
// (DNS, refused connection, per-attempt timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("xtream transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PayloadError is a 2xx response whose body could not be decoded.
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInvalidPayload, e.Err)
}

func (e *PayloadError) Unwrap() []error {
	return []error{ErrInvalidPayload, e.Err}
}

// RetryError is returned once a call gives up. Last holds the failure of
// the final attempt: an *UpstreamError, a *TransportError or a *PayloadError.
// Cause is set when the caller's context ended the call before the retry
// budget was used up.
type RetryError struct {
	Action   string
	Attempts int
	Last     error
	Cause    error
}

func (e *RetryError) Error() string {
	msg := fmt.Sprintf("xtream: failed after %d attempts: %v", e.Attempts, e.Last)
	if e.Action != "" {
		msg = fmt.Sprintf("xtream: action %q failed after %d attempts: %v", e.Action, e.Attempts, e.Last)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

// Is reports ErrRetriesExhausted so callers can branch with errors.Is.
func (e *RetryError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// Canceled reports whether the caller's context ended the call.
func (e *RetryError) Canceled() bool {
	return e.Cause != nil
}

func (e *RetryError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Last}
	}
	return []error{e.Last, e.Cause}
}
