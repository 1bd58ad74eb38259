// Package apperr holds the failure kinds surfaced by group operations.
// Callers match on kind with errors.Is and show Error() to users.
package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid input")
)

type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NotFound(msg string) error  { return &Error{Kind: ErrNotFound, Message: msg} }
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }
func Conflict(msg string) error  { return &Error{Kind: ErrConflict, Message: msg} }
func Invalid(msg string) error   { return &Error{Kind: ErrInvalid, Message: msg} }

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }
func IsConflict(err error) bool  { return errors.Is(err, ErrConflict) }
func IsInvalid(err error) bool   { return errors.Is(err, ErrInvalid) }
