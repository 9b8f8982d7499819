// Package flash stores one-time toast notifications in a cookie session.
package flash

import (
	"encoding/gob"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "toast"
	flashKey    = "toast"

	TypeSuccess = "success"
	TypeError   = "error"
	TypeMessage = "message"
)

type Toast struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func init() {
	gob.Register(Toast{})
}

type Store struct {
	sessions sessions.Store
}

func New(store sessions.Store) *Store {
	return &Store{sessions: store}
}

// Put queues a toast for the next rendered page.
func (s *Store) Put(w http.ResponseWriter, r *http.Request, t Toast) error {
	session, err := s.sessions.Get(r, sessionName)
	if err != nil && session == nil {
		return fmt.Errorf("loading toast session: %w", err)
	}
	session.AddFlash(t, flashKey)
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("saving toast session: %w", err)
	}
	return nil
}

// Pop returns the most recent pending toast and clears the queue. It returns
// nil when nothing is pending.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) (*Toast, error) {
	session, err := s.sessions.Get(r, sessionName)
	if err != nil && session == nil {
		return nil, fmt.Errorf("loading toast session: %w", err)
	}
	flashes := session.Flashes(flashKey)
	if len(flashes) == 0 {
		return nil, nil
	}
	if err := session.Save(r, w); err != nil {
		return nil, fmt.Errorf("saving toast session: %w", err)
	}
	t, ok := flashes[len(flashes)-1].(Toast)
	if !ok {
		return nil, nil
	}
	return &t, nil
}
