// Package form turns submitted form bodies into typed values or per-field
// errors, never both.
package form

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	// MaxUploadSize bounds any single buffered part.
	MaxUploadSize = 3 << 20

	TitleMinLength   = 1
	TitleMaxLength   = 100
	ContentMinLength = 1
	ContentMaxLength = 10000

	IntentSubmit = "submit"
	IntentDelete = "delete"
	IntentUpload = "upload"
)

var (
	ErrNotMultipart = errors.New("request is not multipart/form-data")
	ErrPartTooLarge  = errors.New("form part exceeds size limit")
	ErrValueTooLarge = errors.New("form value exceeds size limit")
	ErrTooManyParts  = errors.New("form has too many parts")
)

// PartError names the multipart field that broke a limit.
type PartError struct {
	Field string
	Limit int64
	Err   error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("%s: %q over %d bytes", e.Err, e.Field, e.Limit)
}

func (e *PartError) Unwrap() error { return e.Err }

// Errors maps a field name to its messages. The empty key holds form-level messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Result is the outcome of a decode step: Value is meaningful only when OK.
type Result[T any] struct {
	Value  T
	Errors Errors
}

func (r Result[T]) OK() bool { return len(r.Errors) == 0 }

type NoteSubmission struct {
	// ID is empty when the note is being created.
	ID      string
	Title   string
	Content string
	Intent  string
}

// DecodeNote reads a note editor submission from a urlencoded or multipart
// body. Every field is checked so all errors are reported together. The
// returned error is reserved for bodies that cannot be parsed at all.
func DecodeNote(w http.ResponseWriter, r *http.Request) (Result[NoteSubmission], error) {
	var res Result[NoteSubmission]

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(MaxUploadSize)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return res, fmt.Errorf("%w: body over %d bytes", ErrPartTooLarge, maxErr.Limit)
		}
		return res, fmt.Errorf("parsing form: %w", err)
	}

	sub := NoteSubmission{
		ID:      strings.TrimSpace(r.PostFormValue("id")),
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
		Intent:  r.PostFormValue("intent"),
	}
	if sub.Intent == "" {
		sub.Intent = IntentSubmit
	}

	errs := Errors{}
	checkLength(errs, "title", "Title", sub.Title, TitleMinLength, TitleMaxLength)
	checkLength(errs, "content", "Content", sub.Content, ContentMinLength, ContentMaxLength)

	res.Value = sub
	if len(errs) > 0 {
		res.Errors = errs
	}
	return res, nil
}

func checkLength(errs Errors, field, label, value string, lo, hi int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0 && lo > 0:
		errs.Add(field, label+" is required")
	case n < lo:
		errs.Add(field, fmt.Sprintf("%s must be at least %d characters", label, lo))
	case n > hi:
		errs.Add(field, fmt.Sprintf("%s must be at most %d characters", label, hi))
	}
}

// DecodeIntent reads only the intent field of a small action form.
func DecodeIntent(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxValueSize)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(defaultMaxValueSize)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return "", fmt.Errorf("parsing form: %w", err)
	}
	return r.PostFormValue("intent"), nil
}
