package form

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultMaxValueSize = 64 << 10
	defaultMaxParts     = 32
)

type Options struct {
	// FileField names the only part that is treated as the upload.
	FileField    string
	MaxPartSize  int64
	MaxValueSize int64
	MaxParts     int
}

type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

type Submission struct {
	Values url.Values
	// File is nil when no part named FileField carried data.
	File *File
}

// ReadMultipart streams a multipart body. The FileField part is buffered up
// to MaxPartSize; text parts are kept; any other file part is drained and
// dropped without buffering.
func ReadMultipart(r *http.Request, opts Options) (*Submission, error) {
	if opts.MaxPartSize <= 0 {
		opts.MaxPartSize = MaxUploadSize
	}
	if opts.MaxValueSize <= 0 {
		opts.MaxValueSize = defaultMaxValueSize
	}
	if opts.MaxParts <= 0 {
		opts.MaxParts = defaultMaxParts
	}

	mr, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, ErrNotMultipart
		}
		return nil, fmt.Errorf("reading multipart body: %w", err)
	}

	sub := &Submission{Values: url.Values{}}
	for parts := 0; ; parts++ {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading multipart part: %w", err)
		}
		if parts >= opts.MaxParts {
			part.Close()
			return nil, ErrTooManyParts
		}

		name := part.FormName()
		switch {
		case name == opts.FileField && opts.FileField != "":
			if sub.File != nil {
				_, err = io.Copy(io.Discard, part)
				break
			}
			var data []byte
			data, err = readLimited(part, opts.MaxPartSize)
			if errors.Is(err, ErrPartTooLarge) {
				part.Close()
				return nil, &PartError{Field: name, Limit: opts.MaxPartSize, Err: ErrPartTooLarge}
			}
			if err == nil && (len(data) > 0 || part.FileName() != "") {
				sub.File = &File{
					Field:       name,
					Filename:    part.FileName(),
					ContentType: part.Header.Get("Content-Type"),
					Data:        data,
				}
			}
		case part.FileName() != "":
			_, err = io.Copy(io.Discard, part)
		default:
			var value []byte
			value, err = readLimited(part, opts.MaxValueSize)
			if err == nil {
				sub.Values.Add(name, string(value))
			}
		}
		part.Close()
		if err != nil {
			if errors.Is(err, ErrPartTooLarge) {
				return nil, &PartError{Field: name, Limit: opts.MaxValueSize, Err: ErrValueTooLarge}
			}
			return nil, fmt.Errorf("reading part %q: %w", name, err)
		}
	}
	return sub, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrPartTooLarge
	}
	return data, nil
}

type ImageUpload struct {
	File        File
	Description string
	Intent      string
}

// DecodeImage validates the file part of a submission: it must be present
// and declare an image content type.
func DecodeImage(sub *Submission, field string) Result[ImageUpload] {
	res := Result[ImageUpload]{Value: ImageUpload{
		Description: sub.Values.Get("description"),
		Intent:      sub.Values.Get("intent"),
	}}

	errs := Errors{}
	switch {
	case sub.File == nil || len(sub.File.Data) == 0:
		errs.Add(field, "Image is required")
	case !strings.HasPrefix(strings.ToLower(sub.File.ContentType), "image/"):
		errs.Add(field, "File must be an image")
	default:
		res.Value.File = *sub.File
	}
	if len(errs) > 0 {
		res.Errors = errs
	}
	return res
}
