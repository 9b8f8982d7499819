package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/petermazzocco/go-notes-project/internal/apperr"
	"github.com/petermazzocco/go-notes-project/internal/flash"
	"github.com/petermazzocco/go-notes-project/internal/logging"
	"github.com/petermazzocco/go-notes-project/internal/notes"
	"github.com/petermazzocco/go-notes-project/internal/repository"
	"github.com/petermazzocco/go-notes-project/internal/upload"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	repo    *repository.Repository
	editor  *notes.Editor
	uploads *upload.Pipeline
	flash   *flash.Store
	log     logrus.FieldLogger
}

func New(repo *repository.Repository, editor *notes.Editor, uploads *upload.Pipeline, toasts *flash.Store, log logrus.FieldLogger) *Handler {
	return &Handler{repo: repo, editor: editor, uploads: uploads, flash: toasts, log: log}
}

type errorResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers any failure with its kind's status; store failures are
// logged and their details withheld.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	log := logging.FromRequest(h.log, r).WithField("kind", e.Kind.String())
	if e.Kind == apperr.KindStore {
		log.WithError(err).Error("request failed")
	} else {
		log.WithField("message", e.Message).Debug("request rejected")
	}
	writeJSON(w, e.Kind.Status(), errorResponse{Status: "error", Message: e.Message, Errors: e.Fields})
}

// popToast must run before the response body is written.
func (h *Handler) popToast(w http.ResponseWriter, r *http.Request) *flash.Toast {
	toast, err := h.flash.Pop(w, r)
	if err != nil {
		logging.FromRequest(h.log, r).WithError(err).Warn("reading toast failed")
		return nil
	}
	return toast
}

func (h *Handler) putToast(w http.ResponseWriter, r *http.Request, t flash.Toast) {
	if err := h.flash.Put(w, r, t); err != nil {
		logging.FromRequest(h.log, r).WithError(err).Warn("storing toast failed")
	}
}
