// Package upload runs a single image upload request: receive the multipart
// body, pick the file part, validate it, send it to the media host and record
// the resulting URL against its owner.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/petermazzocco/go-notes-project/internal/apperr"
	"github.com/petermazzocco/go-notes-project/internal/form"
	"github.com/petermazzocco/go-notes-project/internal/media"
	"github.com/petermazzocco/go-notes-project/internal/metrics"
	"github.com/petermazzocco/go-notes-project/internal/repository"
	"github.com/petermazzocco/go-notes-project/models"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateReceiving  State = "receiving"
	StateFiltering  State = "filtering"
	StateValidating State = "validating"
	StateUploading  State = "uploading"
	StatePersisting State = "persisting"
	StateCompleted  State = "completed"
	StateRejected   State = "rejected"
)

type OwnerKind int

const (
	OwnerUser OwnerKind = iota
	OwnerNote
)

const (
	ProfileField    = "profile"
	AttachmentField = "img"
)

type Target struct {
	Kind    OwnerKind
	OwnerID string
	// Field is the multipart part that carries the file.
	Field string
	// Intent, when set, must match the submitted intent field.
	Intent string
}

type ImageStore interface {
	SetOwnerImage(ctx context.Context, ownerID string, data repository.ImageData) (*models.Image, error)
	SetNoteImage(ctx context.Context, noteID string, data repository.ImageData) (*models.Image, error)
}

// Transformer rewrites image bytes before upload, e.g. to bound dimensions.
type Transformer interface {
	Transform(data []byte, contentType string) ([]byte, string, error)
}

type Result struct {
	Image       *models.Image
	Description string
}

type Pipeline struct {
	store     ImageStore
	media     media.Uploader
	folder    string
	limit     int64
	transform Transformer
	log       logrus.FieldLogger
}

type Option func(*Pipeline)

func WithLimit(n int64) Option {
	return func(p *Pipeline) { p.limit = n }
}

func WithTransformer(t Transformer) Option {
	return func(p *Pipeline) { p.transform = t }
}

func New(store ImageStore, uploader media.Uploader, folder string, log logrus.FieldLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:  store,
		media:  uploader,
		folder: folder,
		limit:  form.MaxUploadSize,
		log:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run takes the request through every state in order. Any rejection before
// StateUploading happens without contacting the media host.
func (p *Pipeline) Run(ctx context.Context, r *http.Request, target Target) (*Result, error) {
	log := p.log.WithFields(logrus.Fields{"owner": target.OwnerID, "field": target.Field})

	log.WithField("state", StateReceiving).Debug("upload state")
	sub, err := form.ReadMultipart(r, form.Options{FileField: target.Field, MaxPartSize: p.limit})
	if err != nil {
		return nil, p.reject(log, receiveError(target.Field, p.limit, err))
	}

	log.WithField("state", StateFiltering).Debug("upload state")
	if target.Intent != "" && sub.Values.Get("intent") != target.Intent {
		return nil, p.reject(log, apperr.Precondition("Invalid intent"))
	}

	log.WithField("state", StateValidating).Debug("upload state")
	decoded := form.DecodeImage(sub, target.Field)
	if !decoded.OK() {
		return nil, p.reject(log, apperr.Validation(decoded.Errors))
	}
	file := decoded.Value.File

	log.WithField("state", StateUploading).Debug("upload state")
	data, contentType := file.Data, file.ContentType
	if p.transform != nil {
		data, contentType, err = p.transform.Transform(data, contentType)
		if err != nil {
			return nil, p.reject(log, apperr.Upload(fmt.Errorf("%w: %w", media.ErrUploadFailure, err)))
		}
	}
	url, err := p.media.Upload(ctx, bytes.NewReader(data), media.Object{
		Folder:      p.folder,
		Filename:    file.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
	})
	if err == nil && url == "" {
		err = fmt.Errorf("%w: empty url", media.ErrUploadFailure)
	}
	if err != nil {
		return nil, p.reject(log, apperr.Upload(err))
	}

	log.WithField("state", StatePersisting).Debug("upload state")
	image, err := p.persist(ctx, target, repository.ImageData{URL: url, ContentType: contentType})
	if err != nil {
		return nil, p.reject(log, apperr.Store(err))
	}

	log.WithFields(logrus.Fields{"state": StateCompleted, "image": image.ID}).Info("upload completed")
	return &Result{Image: image, Description: decoded.Value.Description}, nil
}

func (p *Pipeline) persist(ctx context.Context, target Target, data repository.ImageData) (*models.Image, error) {
	switch target.Kind {
	case OwnerUser:
		return p.store.SetOwnerImage(ctx, target.OwnerID, data)
	case OwnerNote:
		return p.store.SetNoteImage(ctx, target.OwnerID, data)
	default:
		return nil, fmt.Errorf("unknown owner kind %d", target.Kind)
	}
}

func (p *Pipeline) reject(log logrus.FieldLogger, err *apperr.Error) error {
	metrics.RecordUploadRejection(err.Kind.String())
	entry := log.WithFields(logrus.Fields{"state": StateRejected, "reason": err.Kind.String()})
	if err.Err != nil {
		entry = entry.WithError(err.Err)
	}
	if err.Kind == apperr.KindStore || err.Kind == apperr.KindUpload {
		entry.Error("upload rejected")
	} else {
		entry.Warn("upload rejected")
	}
	return err
}

func receiveError(field string, limit int64, err error) *apperr.Error {
	var perr *form.PartError
	switch {
	case errors.As(err, &perr) && errors.Is(err, form.ErrValueTooLarge):
		return apperr.TooLarge(perr.Field, "Value is too long", err)
	case errors.Is(err, form.ErrPartTooLarge):
		return apperr.TooLarge(field, fmt.Sprintf("File must be at most %dMB", limit>>20), err)
	case errors.Is(err, form.ErrNotMultipart):
		return apperr.Validation(form.Errors{field: {"Image is required"}})
	case errors.Is(err, form.ErrTooManyParts):
		return apperr.Precondition("Too many form fields")
	default:
		e := apperr.Precondition("Malformed form data")
		e.Err = err
		return e
	}
}
