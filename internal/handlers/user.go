package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/petermazzocco/go-notes-project/internal/apperr"
	"github.com/petermazzocco/go-notes-project/internal/flash"
	"github.com/petermazzocco/go-notes-project/internal/form"
	"github.com/petermazzocco/go-notes-project/internal/repository"
	"github.com/petermazzocco/go-notes-project/internal/upload"
	"github.com/petermazzocco/go-notes-project/models"
)

type userView struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
	Joined   string    `json:"joined"`
	ImageID  string    `json:"image_id,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
}

// profileView puts the user fields at the top level next to the toast.
type profileView struct {
	userView
	Toast *flash.Toast `json:"toast"`
}

func newUserView(u *models.User) userView {
	v := userView{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.DisplayName(),
		JoinedAt: u.CreatedAt,
		Joined:   u.CreatedAt.Format("January 2, 2006"),
	}
	if u.Image != nil {
		v.ImageID = u.Image.ID
		v.ImageURL = u.Image.URL
	}
	return v
}

func (h *Handler) findUser(r *http.Request) (*models.User, error) {
	username := chi.URLParam(r, "username")
	if username == "" {
		return nil, apperr.Precondition("Username is required")
	}
	user, err := h.repo.FindUserByUsername(r.Context(), username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("No user with the username %s exists", username))
	}
	if err != nil {
		return nil, apperr.Store(err)
	}
	return user, nil
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.findUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileView{
		userView: newUserView(user),
		Toast:    h.popToast(w, r),
	})
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Has("search") && query.Get("search") == "" {
		http.Redirect(w, r, "/users", http.StatusFound)
		return
	}

	users, err := h.repo.SearchUsers(r.Context(), query.Get("search"), repository.DefaultSearchLimit)
	if err != nil {
		h.writeError(w, r, apperr.Store(err))
		return
	}

	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "idle",
		"users":  views,
	})
}

// UploadProfileImage accepts the "profile" file part with intent=upload.
func (h *Handler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	user, err := h.findUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.uploads.Run(r.Context(), r, upload.Target{
		Kind:    upload.OwnerUser,
		OwnerID: user.ID,
		Field:   upload.ProfileField,
		Intent:  form.IntentUpload,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.putToast(w, r, flash.Toast{
		ID:          user.ID,
		Type:        flash.TypeSuccess,
		Title:       "Profile updated",
		Description: "Your profile image has been uploaded",
	})
	http.Redirect(w, r, "/users/"+user.Username, http.StatusSeeOther)
}
