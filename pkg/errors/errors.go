// Package errors carries typed, code-classified errors from services to the
// HTTP layer.
package errors

import (
	stderrors "errors"
	"maps"
	"slices"
	"strings"
)

// FieldErrors maps request fields to human readable messages.
type FieldErrors map[string]string

// Fields returns the offending field names in sorted order.
func (f FieldErrors) Fields() []string {
	return slices.Sorted(maps.Keys(f))
}

// Error is a coded failure with an optional cause and client-safe details.
// A nil *Error behaves as an internal error.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err yields New(code, message).
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Validation builds a validation error keyed by the offending field.
func Validation(field, message string) *Error {
	return New(CodeValidation, message).WithDetails(FieldErrors{field: message})
}

// StateConflict builds a lifecycle violation keyed by the offending field.
func StateConflict(field, message string) *Error {
	return New(CodeStateConflict, message).WithDetails(FieldErrors{field: message})
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the payload rendered under "details" and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.code))
	b.WriteString(": ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the first *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
