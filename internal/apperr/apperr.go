// Package apperr defines the error taxonomy shared by the lifecycle
// manager, the judge and the HTTP layer. Handlers map kinds to status
// codes; everything below the HTTP layer only deals in kinds.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindStateConflict
	KindExecutionTimeout
	KindExecution
	KindAuth
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func StateConflict(format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Msg: fmt.Sprintf(format, args...)}
}

func ExecutionTimeout(msg string) *Error {
	return &Error{Kind: KindExecutionTimeout, Msg: msg}
}

func Execution(msg string, err error) *Error {
	return &Error{Kind: KindExecution, Msg: msg, Err: err}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Msg: msg}
}

// KindOf extracts the kind of err, or KindUnknown for errors that did
// not originate from this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
