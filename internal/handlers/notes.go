package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/petermazzocco/go-notes-project/internal/apperr"
	"github.com/petermazzocco/go-notes-project/internal/notes"
	"github.com/petermazzocco/go-notes-project/internal/repository"
	"github.com/petermazzocco/go-notes-project/models"
)

type noteView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	ImageID   string    `json:"image_id,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newNoteView(n *models.Note) noteView {
	v := noteView{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if n.Image != nil {
		v.ImageID = n.Image.ID
		v.ImageURL = n.Image.URL
	}
	return v
}

func (h *Handler) findNote(r *http.Request) (*models.Note, error) {
	username := chi.URLParam(r, "username")
	noteID := chi.URLParam(r, "noteId")
	if noteID == "" {
		return nil, apperr.Precondition("noteId param is required")
	}
	note, err := h.repo.FindOwnedNote(r.Context(), username, noteID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("No note with the id %s exists", noteID))
	}
	if err != nil {
		return nil, apperr.Store(err)
	}
	return note, nil
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	owner, err := h.findUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.repo.ListNotes(r.Context(), owner.ID)
	if err != nil {
		h.writeError(w, r, apperr.Store(err))
		return
	}
	views := make([]noteView, 0, len(list))
	for i := range list {
		views = append(views, newNoteView(&list[i]))
	}

	toast := h.popToast(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"owner": newUserView(owner),
		"notes": views,
		"toast": toast,
	})
}

// GetNote serves both the note page and the editor's initial values.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.findNote(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	toast := h.popToast(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"note":  newNoteView(note),
		"owner": newUserView(note.Owner),
		"toast": toast,
	})
}

// SaveNote handles both the new-note form and the edit form. Editing a note
// that does not exist is a 404 rather than a silent create.
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	noteID := chi.URLParam(r, "noteId")
	if noteID != "" {
		if _, err := h.findNote(r); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	out, err := h.editor.Save(r.Context(), w, r, username, noteID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if out.Status == notes.StatusIdle {
		writeJSON(w, http.StatusOK, map[string]any{"status": string(out.Status)})
		return
	}
	http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	target, err := h.editor.Delete(r.Context(), w, r, chi.URLParam(r, "username"), chi.URLParam(r, "noteId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
