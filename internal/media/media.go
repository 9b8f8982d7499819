// Package media uploads image bytes to an external object host and returns
// the public URL the rest of the app renders.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/petermazzocco/go-notes-project/internal/metrics"
)

// ErrUploadFailure wraps every failure reported by a backend, including a
// successful call that produced no URL.
var ErrUploadFailure = errors.New("media upload failed")

type Object struct {
	Folder      string
	Filename    string
	ContentType string
	// Size is -1 when unknown.
	Size int64
}

type Uploader interface {
	Upload(ctx context.Context, body io.Reader, obj Object) (string, error)
}

// ObjectKey namespaces uploads by folder and keeps the original filename readable.
func ObjectKey(obj Object) string {
	name := path.Base(strings.ReplaceAll(obj.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	folder := strings.Trim(obj.Folder, "/")
	if folder == "" {
		return fmt.Sprintf("%s_%s", uuid.NewString(), name)
	}
	return fmt.Sprintf("%s/%s_%s", folder, uuid.NewString(), name)
}

// publicURL fills the single %s in format with key, escaping each path segment.
func publicURL(format, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf(format, strings.Join(segments, "/"))
}

func failure(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s returned no url", ErrUploadFailure, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrUploadFailure, op, err)
}

type instrumented struct {
	backend string
	next    Uploader
}

// Instrumented counts upload attempts per backend and result.
func Instrumented(backend string, next Uploader) Uploader {
	return &instrumented{backend: backend, next: next}
}

func (i *instrumented) Upload(ctx context.Context, body io.Reader, obj Object) (string, error) {
	u, err := i.next.Upload(ctx, body, obj)
	metrics.RecordMediaUpload(i.backend, err)
	return u, err
}
