package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies why an action or a run failed.
type ErrorKind string

const (
	KindInvalidInput     ErrorKind = "invalid_input"
	KindElementNotFound  ErrorKind = "element_not_found"
	KindOperationTimeout ErrorKind = "operation_timeout"
	KindOperationFailure ErrorKind = "operation_failure"
	KindLaunchFailure    ErrorKind = "launch_failure"
	KindTemplateError    ErrorKind = "template_error"
)

// Fatal kinds abort a run; every other kind is contained in one result.
func (k ErrorKind) Fatal() bool {
	return k == KindLaunchFailure || k == KindTemplateError
}

// Error carries a kind next to the message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or "" when there
// is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
