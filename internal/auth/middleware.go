package auth

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

const (
	SessionName = "notes_session"
	usernameKey = "username"
)

type ctxKey struct{}

// UsernameFromContext returns the signed-in username set by UserMiddleware.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(ctxKey{}).(string)
	return username, ok && username != ""
}

// UserMiddleware loads the signed-in username, if any, into the request context.
func UserMiddleware(store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, SessionName)
			if err != nil || session == nil {
				next.ServeHTTP(w, r)
				return
			}
			if username, ok := session.Values[usernameKey].(string); ok && username != "" {
				r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, username))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner only lets the user named in the {username} route parameter through.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := UsernameFromContext(r.Context())
		if !ok {
			http.Error(w, "Not Authorized", http.StatusUnauthorized)
			return
		}
		if username != chi.URLParam(r, "username") {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetUsername records a successful login in the session.
func SetUsername(w http.ResponseWriter, r *http.Request, store sessions.Store, username string) error {
	session, err := store.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[usernameKey] = username
	return session.Save(r, w)
}

func ClearUsername(w http.ResponseWriter, r *http.Request, store sessions.Store) error {
	session, err := store.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	delete(session.Values, usernameKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
