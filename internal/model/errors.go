package model

import "errors"

// Error kinds. Concrete domain errors wrap one of these so callers can branch
// with errors.Is(err, model.ErrNotFound) without knowing the exact entity.
var (
	ErrNotFound     = errors.New("not found")
	ErrSelfFollow   = errors.New("self follow")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	// ErrConflict is reserved; follow and like are idempotent and never return it.
	ErrConflict = errors.New("conflict")
)

// kindError attaches a kind to a concrete message.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

// NewValidationError builds an ad-hoc validation error.
func NewValidationError(msg string) error {
	return newKindError(ErrValidation, msg)
}
