package response

import (
	"errors"
	"fmt"
)

type Error struct {
	Code  int
	Err   error
	Step  string
	Cause error
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

// Message is the client-safe text: the base message and the failed step,
// never the cause.
func (e *Error) Message() string {
	if e.Step != "" {
		return e.Err.Error() + ": " + e.Step
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on code and base message, so a wrapped error still matches its sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}

// Wrap attaches cause to a sentinel created by NewError, keeping its status code.
func Wrap(sentinel error, cause error) error {
	var base *Error
	if !errors.As(sentinel, &base) {
		return fmt.Errorf("%w: %v", sentinel, cause)
	}
	return &Error{Code: base.Code, Err: base.Err, Cause: cause}
}

// WrapStep is Wrap with the name of the step that failed.
func WrapStep(sentinel error, step string, cause error) error {
	var base *Error
	if !errors.As(sentinel, &base) {
		return fmt.Errorf("%w: %s: %v", sentinel, step, cause)
	}
	return &Error{Code: base.Code, Err: base.Err, Step: step, Cause: cause}
}
