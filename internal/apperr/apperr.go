// Package apperr classifies request failures so every handler answers them
// with the same status codes and payload shape.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindNotFound
	KindPrecondition
	KindUpload
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindUpload:
		return "upload"
	case KindTooLarge:
		return "too_large"
	default:
		return "store"
	}
}

// Status is the HTTP status a failure of this kind is answered with.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPrecondition:
		return http.StatusBadRequest
	case KindUpload:
		return http.StatusBadGateway
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages; the empty key is for form-level messages.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "Invalid submission", Fields: fields}
}

func TooLarge(field, msg string, err error) *Error {
	return &Error{Kind: KindTooLarge, Message: msg, Fields: map[string][]string{field: {msg}}, Err: err}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Precondition(msg string) *Error {
	return &Error{Kind: KindPrecondition, Message: msg}
}

func Upload(err error) *Error {
	return &Error{
		Kind:    KindUpload,
		Message: "Image upload failed",
		Fields:  map[string][]string{"": {"Image upload failed"}},
		Err:     err,
	}
}

func Store(err error) *Error {
	return &Error{Kind: KindStore, Message: "Internal Server Error", Err: err}
}

// As returns err as an *Error, treating anything unclassified as a store failure.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Store(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
