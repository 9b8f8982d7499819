// Package notes implements the note editor: validated create/update with a
// success toast, and the delete action.
package notes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/petermazzocco/go-notes-project/internal/apperr"
	"github.com/petermazzocco/go-notes-project/internal/flash"
	"github.com/petermazzocco/go-notes-project/internal/form"
	"github.com/petermazzocco/go-notes-project/internal/repository"
	"github.com/petermazzocco/go-notes-project/models"
	"github.com/sirupsen/logrus"
)

type Store interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpsertNote(ctx context.Context, ownerID string, in repository.NoteInput) (*models.Note, error)
	DeleteNote(ctx context.Context, username, id string) error
}

type Flasher interface {
	Put(w http.ResponseWriter, r *http.Request, t flash.Toast) error
}

type Status string

const (
	StatusSaved Status = "saved"
	// StatusIdle means the form was submitted with a non-submit intent and
	// nothing was written.
	StatusIdle Status = "idle"
)

type Outcome struct {
	Status     Status
	Note       *models.Note
	Redirect   string
	Submission form.NoteSubmission
}

type Editor struct {
	store Store
	flash Flasher
	log   logrus.FieldLogger
}

func NewEditor(store Store, flasher Flasher, log logrus.FieldLogger) *Editor {
	return &Editor{store: store, flash: flasher, log: log}
}

func NotePath(username, noteID string) string {
	return fmt.Sprintf("/users/%s/notes/%s", username, noteID)
}

func NotesPath(username string) string {
	return fmt.Sprintf("/users/%s/notes", username)
}

// Save validates the submission and upserts the note for username. noteID,
// taken from the route, overrides the submitted id. A missing or unknown id
// creates a new note.
func (e *Editor) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, username, noteID string) (*Outcome, error) {
	res, err := form.DecodeNote(w, r)
	if err != nil {
		if errors.Is(err, form.ErrPartTooLarge) {
			return nil, apperr.TooLarge("", "Submission is too large", err)
		}
		perr := apperr.Precondition("Malformed form data")
		perr.Err = err
		return nil, perr
	}

	if res.Value.Intent != form.IntentSubmit {
		return &Outcome{Status: StatusIdle, Submission: res.Value}, nil
	}
	if !res.OK() {
		return nil, apperr.Validation(res.Errors)
	}

	owner, err := e.store.FindUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Precondition(fmt.Sprintf("Owner %s does not exist", username))
	}
	if err != nil {
		return nil, apperr.Store(err)
	}

	sub := res.Value
	if noteID != "" {
		sub.ID = noteID
	}
	note, err := e.store.UpsertNote(ctx, owner.ID, repository.NoteInput{
		ID:      sub.ID,
		Title:   sub.Title,
		Content: sub.Content,
	})
	if err != nil {
		return nil, apperr.Store(err)
	}

	if err := e.flash.Put(w, r, flash.Toast{
		ID:          sub.ID,
		Type:        flash.TypeSuccess,
		Title:       "Add success",
		Description: "Your note has been added/updated",
	}); err != nil {
		e.log.WithError(err).WithField("note", note.ID).Warn("could not store toast")
	}

	e.log.WithFields(logrus.Fields{"note": note.ID, "owner": username, "created": sub.ID != note.ID}).Info("note saved")
	return &Outcome{
		Status:     StatusSaved,
		Note:       note,
		Redirect:   NotePath(username, note.ID),
		Submission: sub,
	}, nil
}

// Delete removes the note and returns the listing to redirect to. A note that
// does not exist redirects the same way.
func (e *Editor) Delete(ctx context.Context, w http.ResponseWriter, r *http.Request, username, noteID string) (string, error) {
	if noteID == "" {
		return "", apperr.Precondition("noteId param is required")
	}
	intent, err := form.DecodeIntent(w, r)
	if err != nil || intent != form.IntentDelete {
		return "", apperr.Precondition("Invalid intent")
	}

	if err := e.store.DeleteNote(ctx, username, noteID); err != nil {
		return "", apperr.Store(err)
	}
	e.log.WithFields(logrus.Fields{"note": noteID, "owner": username}).Info("note deleted")
	return NotesPath(username), nil
}
