package models

import (
	"errors"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login defense errors
	ErrRateLimitExceeded = errors.New("too many login attempts")
	ErrMissingSigningKey = errors.New("session signing key is not configured")
)

// LockoutError carries a retry hint alongside an authentication outcome.
// It wraps ErrRateLimitExceeded when the attempt was rejected by an active block,
// or ErrUnauthorized when a failed attempt just triggered one.
type LockoutError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return e.Err.Error()
}

func (e *LockoutError) Unwrap() error {
	return e.Err
}

// RetryAfterSeconds rounds the remaining block time up, never below one second.
func (e *LockoutError) RetryAfterSeconds() int {
	return RetryAfterSeconds(e.RetryAfter)
}

// RetryAfterSeconds converts a remaining duration to whole seconds, rounding up, minimum 1.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
