package form

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noteRequest(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/users/kody/notes/new", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestDecodeNoteValid(t *testing.T) {
	res, err := DecodeNote(httptest.NewRecorder(), noteRequest(url.Values{
		"id": {" abc "}, "title": {"Hello"}, "content": {"World"},
	}))
	require.NoError(t, err)
	require.True(t, res.OK())

	assert.Equal(t, "abc", res.Value.ID)
	assert.Equal(t, "Hello", res.Value.Title)
	assert.Equal(t, "World", res.Value.Content)
	assert.Equal(t, IntentSubmit, res.Value.Intent)
}

func TestDecodeNoteCollectsAllErrors(t *testing.T) {
	res, err := DecodeNote(httptest.NewRecorder(), noteRequest(url.Values{
		"title": {""}, "content": {strings.Repeat("a", ContentMaxLength+1)},
	}))
	require.NoError(t, err)
	require.False(t, res.OK())

	assert.Equal(t, []string{"Title is required"}, res.Errors["title"])
	assert.Equal(t, []string{"Content must be at most 10000 characters"}, res.Errors["content"])
}

func TestDecodeNoteTitleBounds(t *testing.T) {
	tests := []struct {
		name  string
		title string
		ok    bool
	}{
		{"empty", "", false},
		{"one char", "a", true},
		{"at limit", strings.Repeat("a", TitleMaxLength), true},
		{"over limit", strings.Repeat("a", TitleMaxLength+1), false},
		{"multibyte at limit", strings.Repeat("é", TitleMaxLength), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DecodeNote(httptest.NewRecorder(), noteRequest(url.Values{
				"title": {tt.title}, "content": {"body"},
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.ok, res.OK(), res.Errors)
			if !tt.ok {
				assert.NotEmpty(t, res.Errors["title"])
			}
		})
	}
}

func TestDecodeNoteMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Hello"))
	require.NoError(t, mw.WriteField("content", "World"))
	require.NoError(t, mw.WriteField("intent", "preview"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := DecodeNote(httptest.NewRecorder(), r)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "preview", res.Value.Intent)
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename == "" && p.contentType == "" {
			require.NoError(t, mw.WriteField(p.field, string(p.data)))
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestReadMultipartKeepsOnlyFileField(t *testing.T) {
	r := multipartRequest(t,
		part{field: "other", filename: "x.png", contentType: "image/png", data: []byte("ignored")},
		part{field: "img", filename: "cat.png", contentType: "image/png", data: []byte("png-bytes")},
		part{field: "description", data: []byte("a cat")},
	)

	sub, err := ReadMultipart(r, Options{FileField: "img"})
	require.NoError(t, err)
	require.NotNil(t, sub.File)
	assert.Equal(t, "cat.png", sub.File.Filename)
	assert.Equal(t, []byte("png-bytes"), sub.File.Data)
	assert.Equal(t, "a cat", sub.Values.Get("description"))
	assert.Empty(t, sub.Values.Get("other"))
}

func TestReadMultipartPartTooLarge(t *testing.T) {
	r := multipartRequest(t, part{
		field: "img", filename: "big.png", contentType: "image/png", data: bytes.Repeat([]byte{1}, 5<<20),
	})

	_, err := ReadMultipart(r, Options{FileField: "img", MaxPartSize: MaxUploadSize})
	assert.ErrorIs(t, err, ErrPartTooLarge)
}

func TestReadMultipartValueTooLarge(t *testing.T) {
	r := multipartRequest(t,
		part{field: "img", filename: "cat.png", contentType: "image/png", data: []byte("png")},
		part{field: "description", data: bytes.Repeat([]byte("a"), 70<<10)},
	)

	_, err := ReadMultipart(r, Options{FileField: "img"})
	require.ErrorIs(t, err, ErrValueTooLarge)
	assert.NotErrorIs(t, err, ErrPartTooLarge)

	var perr *PartError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "description", perr.Field)
}

func TestReadMultipartNotMultipart(t *testing.T) {
	r := noteRequest(url.Values{"title": {"x"}})

	_, err := ReadMultipart(r, Options{FileField: "img"})
	assert.ErrorIs(t, err, ErrNotMultipart)
}

func TestReadMultipartTooManyParts(t *testing.T) {
	parts := make([]part, 0, 5)
	for i := 0; i < 5; i++ {
		parts = append(parts, part{field: "f", data: []byte("v")})
	}

	_, err := ReadMultipart(multipartRequest(t, parts...), Options{FileField: "img", MaxParts: 3})
	assert.ErrorIs(t, err, ErrTooManyParts)
}

func TestDecodeImage(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		res := DecodeImage(&Submission{Values: url.Values{}}, "img")
		assert.Equal(t, []string{"Image is required"}, res.Errors["img"])
	})

	t.Run("not an image", func(t *testing.T) {
		res := DecodeImage(&Submission{Values: url.Values{}, File: &File{
			Field: "img", ContentType: "application/pdf", Data: []byte("%PDF"),
		}}, "img")
		assert.Equal(t, []string{"File must be an image"}, res.Errors["img"])
	})

	t.Run("image", func(t *testing.T) {
		res := DecodeImage(&Submission{
			Values: url.Values{"description": {"cat"}, "intent": {"upload"}},
			File:   &File{Field: "img", ContentType: "image/PNG", Data: []byte("png")},
		}, "img")
		require.True(t, res.OK())
		assert.Equal(t, "cat", res.Value.Description)
		assert.Equal(t, "upload", res.Value.Intent)
		assert.Equal(t, []byte("png"), res.Value.File.Data)
	})
}

func TestDecodeIntent(t *testing.T) {
	intent, err := DecodeIntent(httptest.NewRecorder(), noteRequest(url.Values{"intent": {"delete"}}))
	require.NoError(t, err)
	assert.Equal(t, IntentDelete, intent)
}
