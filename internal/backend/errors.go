package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable indicates the backend could not be reached or failed
// (transport error, timeout, 5xx, 429).
type ErrUnavailable struct {
	Op         string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *ErrUnavailable) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: backend unavailable (HTTP %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: backend unavailable: %v", e.Op, e.Err)
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// ErrUnauthorized indicates missing, expired or insufficient credentials.
type ErrUnauthorized struct {
	Op     string
	Status int
	Err    error
}

func (e *ErrUnauthorized) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unauthorized: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: unauthorized (HTTP %d)", e.Op, e.Status)
}

func (e *ErrUnauthorized) Unwrap() error { return e.Err }

// ErrRejected indicates the backend refused the request (4xx other than
// 401/403/429), e.g. an invalid state transition or an unknown id.
type ErrRejected struct {
	Op      string
	Status  int
	Message string
}

func (e *ErrRejected) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected (HTTP %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: rejected (HTTP %d): %s", e.Op, e.Status, e.Message)
}

// ErrInvalidResponse indicates a 2xx response whose body does not have the
// expected shape.
type ErrInvalidResponse struct {
	Op   string
	Body json.RawMessage
	Err  error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("%s: invalid backend response: %v", e.Op, e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a backend availability failure.
func IsUnavailable(err error) bool {
	var u *ErrUnavailable
	return errors.As(err, &u)
}

// IsUnauthorized reports whether err requires logging in again.
func IsUnauthorized(err error) bool {
	var u *ErrUnauthorized
	return errors.As(err, &u)
}
