package invoice

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable discriminant callers branch on instead of message text.
type ErrorKind string

const (
	KindParse                   ErrorKind = "parse_error"
	KindDataQuality             ErrorKind = "data_quality_error"
	KindValidationConfiguration ErrorKind = "validation_configuration_error"
	KindPartNotFound            ErrorKind = "part_not_found"
	KindPersistence             ErrorKind = "persistence_error"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrParse                   = &Error{Kind: KindParse}
	ErrDataQuality             = &Error{Kind: KindDataQuality}
	ErrValidationConfiguration = &Error{Kind: KindValidationConfiguration}
	ErrPartNotFound            = &Error{Kind: KindPartNotFound}
	ErrPersistence             = &Error{Kind: KindPersistence}
)

// Error is a classified failure. Line is 0 when the error is not tied to a line.
type Error struct {
	Kind   ErrorKind
	Line   uint
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s at line %d", msg, e.Line)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind, so errors.Is(err, ErrPersistence) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PersistenceError wraps a sink failure.
func PersistenceError(reason string, err error) error {
	return &Error{Kind: KindPersistence, Reason: reason, Err: err}
}
