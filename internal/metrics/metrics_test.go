package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/users/{username}/notes", func(w http.ResponseWriter, r *http.Request) {})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/users/{username}/notes", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/kody/notes", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/users/{username}/notes", "200"))

	assert.Equal(t, before+1, after)
}

func TestRecordMediaUpload(t *testing.T) {
	before := testutil.ToFloat64(mediaUploads.WithLabelValues("fake", "failure"))
	RecordMediaUpload("fake", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(mediaUploads.WithLabelValues("fake", "failure")))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordUploadRejection("not_image")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notes_upload_rejections_total")
}
