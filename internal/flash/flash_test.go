package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenPopOnce(t *testing.T) {
	store := New(sessions.NewCookieStore([]byte("test-secret")))

	rec := httptest.NewRecorder()
	require.NoError(t, store.Put(rec, httptest.NewRequest(http.MethodPost, "/", nil), Toast{
		ID: "n1", Type: TypeSuccess, Title: "Note saved",
	}))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	toast, err := store.Pop(rec, next)
	require.NoError(t, err)
	require.NotNil(t, toast)
	assert.Equal(t, "n1", toast.ID)
	assert.Equal(t, TypeSuccess, toast.Type)

	// The cleared session cookie replaces the old one.
	again := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		again.AddCookie(c)
	}
	toast, err = store.Pop(httptest.NewRecorder(), again)
	require.NoError(t, err)
	assert.Nil(t, toast)
}

func TestPopWithoutSession(t *testing.T) {
	store := New(sessions.NewCookieStore([]byte("test-secret")))

	toast, err := store.Pop(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, toast)
}
