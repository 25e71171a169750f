package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a booking error so callers can branch without string
// matching.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindInvalidDate      Kind = "invalid_date"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindStoreUnavailable Kind = "store_unavailable"
)

// Error is the tagged error variant carried by every failed operation.
// Op names the operation being performed; Fields names offending input
// fields for validation failures.
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Msg != "" {
		sb.WriteString(e.Msg)
	} else {
		sb.WriteString(string(e.Kind))
	}
	if len(e.Fields) > 0 {
		sb.WriteString(" (fields: ")
		sb.WriteString(strings.Join(e.Fields, ", "))
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind of err, or "" if err is not a booking error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func validationf(op string, fields []string, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Fields: fields, Msg: fmt.Sprintf(format, args...)}
}

func invalidDatef(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidDate, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(op, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func storeErr(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Op: op, Msg: "calendar store call failed", Err: err}
}
