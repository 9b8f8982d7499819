package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/petermazzocco/go-notes-project/internal/repository"
	"github.com/petermazzocco/go-notes-project/models"
	"github.com/sirupsen/logrus"
)

type UserStore interface {
	FindOrCreateIdentity(ctx context.Context, id repository.Identity) (*models.User, error)
}

// NewCookieStore builds the session store shared by gothic, auth and toasts.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(86400 * 30)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	return store
}

// UseGoogle registers the Google provider and points gothic at store.
func UseGoogle(store sessions.Store, key, secret, callbackURL string) {
	goth.UseProviders(google.New(key, secret, callbackURL, "email", "profile"))
	gothic.Store = store
}

type Handlers struct {
	users    UserStore
	sessions sessions.Store
	log      logrus.FieldLogger
}

func NewHandlers(users UserStore, store sessions.Store, log logrus.FieldLogger) *Handlers {
	return &Handlers{users: users, sessions: store, log: log}
}

func withProvider(r *http.Request) *http.Request {
	return gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
}

func (h *Handlers) Begin(w http.ResponseWriter, r *http.Request) {
	r = withProvider(r)
	if gothUser, err := gothic.CompleteUserAuth(w, r); err == nil {
		h.login(w, r, gothUser)
		return
	}
	gothic.BeginAuthHandler(w, r)
}

func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	r = withProvider(r)
	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		h.log.WithError(err).Warn("completing oauth login failed")
		http.Error(w, "Not Authorized", http.StatusUnauthorized)
		return
	}
	h.login(w, r, gothUser)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	r = withProvider(r)
	if err := gothic.Logout(w, r); err != nil {
		h.log.WithError(err).Warn("clearing oauth session failed")
	}
	if err := ClearUsername(w, r, h.sessions); err != nil {
		h.log.WithError(err).Warn("clearing session failed")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request, gothUser goth.User) {
	if gothUser.UserID == "" {
		http.Error(w, "Account has no provider id", http.StatusBadRequest)
		return
	}

	user, err := h.users.FindOrCreateIdentity(r.Context(), repository.Identity{
		Provider:   gothUser.Provider,
		ProviderID: gothUser.UserID,
		Email:      gothUser.Email,
		Username:   UsernameFor(gothUser),
		Name:       gothUser.Name,
	})
	if err != nil {
		h.log.WithError(err).WithField("provider", gothUser.Provider).Error("failed to create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if err := SetUsername(w, r, h.sessions, user.Username); err != nil {
		h.log.WithError(err).Error("failed to save session")
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/users/"+user.Username, http.StatusTemporaryRedirect)
}

// UsernameFor suggests a url-safe username from the provider profile: the
// nickname when it has usable characters, otherwise the email local part.
func UsernameFor(u goth.User) string {
	if name := cleanUsername(u.NickName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return cleanUsername(local)
}

func cleanUsername(candidate string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(candidate) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '_', ch == '-':
			b.WriteRune(ch)
		case ch == '.' || ch == ' ':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_-")
}
