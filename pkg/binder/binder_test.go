package binder_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blackfile/pkg/binder"
)

type uploadRequest struct {
	Email   string                `form:"email"`
	TTL     int                   `form:"ttl"`
	Notify  bool                  `form:"notify"`
	Skipped string                `form:"-"`
	File    *multipart.FileHeader `file:"file"`
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/transfers", &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}

func TestForm_Multipart(t *testing.T) {
	t.Parallel()

	r := multipartRequest(t, map[string]string{
		"email":  "a@example.com",
		"ttl":    "10",
		"notify": "on",
	}, "../../secret.txt", []byte("hello"))

	var req uploadRequest
	require.NoError(t, binder.Form()(r, &req))

	assert.Equal(t, "a@example.com", req.Email)
	assert.Equal(t, 10, req.TTL)
	assert.True(t, req.Notify)
	require.NotNil(t, req.File)
	assert.Equal(t, "secret.txt", req.File.Filename)

	f, err := req.File.Open()
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestForm_URLEncoded(t *testing.T) {
	t.Parallel()

	form := url.Values{"email": {"b@example.com"}, "ttl": {"5"}, "-": {"x"}}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var req uploadRequest
	require.NoError(t, binder.Form()(r, &req))
	assert.Equal(t, "b@example.com", req.Email)
	assert.Equal(t, 5, req.TTL)
	assert.Empty(t, req.Skipped)
	assert.Nil(t, req.File)
}

func TestForm_InvalidValue(t *testing.T) {
	t.Parallel()

	r := multipartRequest(t, map[string]string{"ttl": "ten"}, "", nil)
	var req uploadRequest
	assert.ErrorIs(t, binder.Form()(r, &req), binder.ErrInvalidForm)
}

func TestForm_NotApplicable(t *testing.T) {
	t.Parallel()

	for _, ct := range []string{"", "application/json", "text/plain"} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		if ct != "" {
			r.Header.Set("Content-Type", ct)
		}
		var req uploadRequest
		assert.ErrorIs(t, binder.Form()(r, &req), binder.ErrBinderNotApplicable, ct)
	}
}

func TestForm_BodyTooLarge(t *testing.T) {
	t.Parallel()

	r := multipartRequest(t, nil, "big.bin", bytes.Repeat([]byte("x"), 4096))
	rec := httptest.NewRecorder()
	r.Body = http.MaxBytesReader(rec, r.Body, 1024)

	var req uploadRequest
	assert.ErrorIs(t, binder.Form()(r, &req), binder.ErrBodyTooLarge)
}

func TestForm_BadBoundary(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	r.Header.Set("Content-Type", "multipart/form-data")
	var req uploadRequest
	assert.ErrorIs(t, binder.Form()(r, &req), binder.ErrInvalidForm)
}

func TestForm_TargetMustBeStructPointer(t *testing.T) {
	t.Parallel()

	r := multipartRequest(t, map[string]string{"email": "x"}, "", nil)
	var s string
	assert.ErrorIs(t, binder.Form()(r, &s), binder.ErrInvalidForm)
}

type verifyRequest struct {
	Token string `path:"token" json:"-"`
	Code  string `json:"code"`
	Key   string `json:"key"`
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("binds", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"123456","key":"abc"}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")

		var req verifyRequest
		require.NoError(t, binder.JSON()(r, &req))
		assert.Equal(t, "123456", req.Code)
		assert.Equal(t, "abc", req.Key)
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"1","extra":true}`))
		r.Header.Set("Content-Type", "application/json")
		var req verifyRequest
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrInvalidJSON)
	})

	t.Run("trailing data", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"1"}{"code":"2"}`))
		r.Header.Set("Content-Type", "application/json")
		var req verifyRequest
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrInvalidJSON)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		r.Header.Set("Content-Type", "application/json")
		var req verifyRequest
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrInvalidJSON)
	})

	t.Run("not applicable", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("code=1"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var req verifyRequest
		assert.ErrorIs(t, binder.JSON()(r, &req), binder.ErrBinderNotApplicable)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	extractor := func(_ *http.Request, name string) string {
		return map[string]string{"token": "abcdef"}[name]
	}
	r := httptest.NewRequest(http.MethodGet, "/t/abcdef", nil)

	var req verifyRequest
	require.NoError(t, binder.Path(extractor)(r, &req))
	assert.Equal(t, "abcdef", req.Token)
	assert.Empty(t, req.Code)

	assert.ErrorIs(t, binder.Path(nil)(r, &req), binder.ErrInvalidPath)
}
