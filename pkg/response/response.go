package response

import (
	"errors"
)

// Error is the wire-facing error shape for the agent API. Code is the HTTP
// status the handler layer answers with; anything that is not an *Error
// surfaces as a plain 500.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}
