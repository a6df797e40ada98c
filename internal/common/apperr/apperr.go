package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers (and the HTTP layer) can react without
// string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindConflict
	KindExecution
	KindTimeout
	KindExport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindExecution:
		return "execution"
	case KindTimeout:
		return "timeout"
	case KindExport:
		return "export"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, optional
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Authorization(format string, args ...interface{}) *Error {
	return newf(KindAuthorization, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func Execution(msg string, cause error) *Error {
	return &Error{Kind: KindExecution, Msg: msg, Err: cause}
}

func Timeout(msg string) *Error {
	return &Error{Kind: KindTimeout, Msg: msg}
}

func Export(msg string, cause error) *Error {
	return &Error{Kind: KindExport, Msg: msg, Err: cause}
}

// KindOf returns the classification of err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
