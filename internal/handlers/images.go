package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/petermazzocco/go-notes-project/internal/apperr"
	"github.com/petermazzocco/go-notes-project/internal/flash"
	"github.com/petermazzocco/go-notes-project/internal/notes"
	"github.com/petermazzocco/go-notes-project/internal/repository"
	"github.com/petermazzocco/go-notes-project/internal/upload"
)

// GetImage redirects to the hosted copy of an image. Rows that only carry a
// legacy blob are treated as missing.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "imageId")
	if id == "" {
		h.writeError(w, r, apperr.Precondition("Image ID is required"))
		return
	}

	image, err := h.repo.FindImage(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && image.URL == "") {
		h.writeError(w, r, apperr.NotFound("Not found"))
		return
	}
	if err != nil {
		h.writeError(w, r, apperr.Store(err))
		return
	}

	http.Redirect(w, r, image.URL, http.StatusFound)
}

// UploadNoteImage attaches the "img" file part to a note owned by the route user.
func (h *Handler) UploadNoteImage(w http.ResponseWriter, r *http.Request) {
	note, err := h.findNote(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.uploads.Run(r.Context(), r, upload.Target{
		Kind:    upload.OwnerNote,
		OwnerID: note.ID,
		Field:   upload.AttachmentField,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	description := "Your image has been attached"
	if res.Description != "" {
		description = res.Description
	}
	h.putToast(w, r, flash.Toast{
		ID:          note.ID,
		Type:        flash.TypeSuccess,
		Title:       "Image uploaded",
		Description: description,
	})
	http.Redirect(w, r, notes.NotePath(chi.URLParam(r, "username"), note.ID), http.StatusSeeOther)
}
