package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/sessions"
	"github.com/petermazzocco/go-notes-project/internal/auth"
	"github.com/petermazzocco/go-notes-project/internal/logging"
	"github.com/petermazzocco/go-notes-project/internal/metrics"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Sessions sessions.Store
	// Auth is nil when login is disabled; mutating routes are then open.
	Auth *auth.Handlers
	// UploadLimit is the per-IP, per-endpoint upload budget per minute.
	UploadLimit int
	Log         logrus.FieldLogger
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.UploadLimit <= 0 {
		cfg.UploadLimit = 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(auth.UserMiddleware(cfg.Sessions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if cfg.Auth != nil {
		r.Get("/auth/{provider}", cfg.Auth.Begin)
		r.Get("/auth/{provider}/callback", cfg.Auth.Callback)
		r.Post("/logout/{provider}", cfg.Auth.Logout)
	}

	r.Get("/users", h.SearchUsers)
	r.Route("/users/{username}", func(r chi.Router) {
		r.Get("/", h.GetUser)
		r.Get("/notes", h.ListNotes)
		r.Get("/notes/{noteId}", h.GetNote)
		r.Get("/notes/{noteId}/edit", h.GetNote)

		r.Group(func(r chi.Router) {
			if cfg.Auth != nil {
				r.Use(auth.RequireOwner)
			}
			r.Post("/notes/new", h.SaveNote)
			r.Post("/notes/{noteId}", h.DeleteNote)
			r.Post("/notes/{noteId}/edit", h.SaveNote)

			r.Group(func(r chi.Router) {
				r.Use(httprate.Limit(
					cfg.UploadLimit,
					1*time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				))
				r.Post("/", h.UploadProfileImage)
				r.Post("/notes/{noteId}/image", h.UploadNoteImage)
			})
		})
	})

	r.Get("/resources/images/{imageId}", h.GetImage)

	return r
}
