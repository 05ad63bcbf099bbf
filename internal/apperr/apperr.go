// Package apperr holds the error kinds shared by the match lifecycle services.
// Handlers map each kind to a user-facing message and status code.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup matched no row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidToken is returned when a claim token matches no match.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// ValidationError reports missing or malformed input. It is user-correctable.
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

// Invalid is a shorthand to build a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AlreadyClaimedError is returned when a match already has a player. It
// carries the recorded duration so the caller can show it.
type AlreadyClaimedError struct {
	DurationMs int64
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("match already claimed (time %d ms)", e.DurationMs)
}

// PersistenceError wraps a store failure. Reads are safe to retry; a claim
// must be re-checked instead.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err in a *PersistenceError unless it is nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// RenderError reports a QR rendering failure. The match it belongs to is
// still persisted and usable through its raw claim URL.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render qr: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AsAlreadyClaimed returns the *AlreadyClaimedError in err's chain, if any.
func AsAlreadyClaimed(err error) (*AlreadyClaimedError, bool) {
	var ac *AlreadyClaimedError
	if errors.As(err, &ac) {
		return ac, true
	}
	return nil, false
}
