package services

import (
	"errors"
	"fmt"

	"gasy-hub-backend/internal/repository"
)

// Errors returned by the services. Handlers map them to HTTP status codes
// with errors.Is; the wrapped message is shown to the client verbatim.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrAlreadyVoted = errors.New("user has already voted on this alert")
	ErrConflict     = errors.New("conflict")
)

// Error attaches a client-facing message to one of the sentinel errors
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// fromStore translates repository errors into service errors. Anything it
// does not recognize is returned unchanged and treated as a storage failure.
func fromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, "%s not found", what)
	case errors.Is(err, repository.ErrDuplicate):
		return newError(ErrConflict, "%s already exists", what)
	}
	return err
}
