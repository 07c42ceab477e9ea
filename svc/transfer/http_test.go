package transfer_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blackfile/pkg/clientip"
	"github.com/dmitrymomot/blackfile/pkg/logger"
	"github.com/dmitrymomot/blackfile/pkg/ratelimiter"
	"github.com/dmitrymomot/blackfile/svc/transfer"
)

type envelope struct {
	Data  map[string]any `json:"data"`
	Meta  map[string]any `json:"meta"`
	Error *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details map[string][]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func newRouter(f *fixture, opts ...transfer.HTTPOption) http.Handler {
	r := chi.NewRouter()
	r.Use(clientip.Middleware)
	opts = append([]transfer.HTTPOption{transfer.WithHTTPLogger(logger.Nop())}, opts...)
	transfer.NewHTTPHandler(f.svc, opts...).Register(r)
	return r
}

func uploadRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/transfers", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, content string) map[string]any {
	t.Helper()
	rec := serve(h, uploadRequest(t, map[string]string{"email": "r@example.com", "ttl": "5"}, "notes.txt", []byte(content)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec).Data
}

func verifyJSON(token, code, key string) *http.Request {
	body, _ := json.Marshal(map[string]string{"otp": code, "secret_key": key})
	req := httptest.NewRequest(http.MethodPost, "/t/"+token, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func verifyForm(token, code, key string) *http.Request {
	form := url.Values{"otp": {code}, "secret_key": {key}}
	req := httptest.NewRequest(http.MethodPost, "/t/"+token, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHTTP_UploadAndDownload(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := newRouter(f)

	data := upload(t, h, "hello over http")
	token := data["token"].(string)
	key := data["secret_key"].(string)
	assert.Equal(t, "https://blackfile.test/t/"+token, data["link"])
	assert.Equal(t, "notes.txt", data["filename"])
	assert.EqualValues(t, len("hello over http"), data["size"])
	assert.True(t, strings.HasPrefix(data["qr_code"].(string), "data:image/png;base64,"))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/t/"+token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec).Data
	assert.Equal(t, "pending", status["state"])
	assert.EqualValues(t, 3, status["attempts_remaining"])

	rec = serve(h, verifyForm(token, f.outbox.code(token), key))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hello over http", rec.Body.String())
	assert.Equal(t, "attachment; filename=notes.txt", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, data["sha256"], rec.Header().Get("X-Content-SHA256"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	downloads := f.outbox.downloads()
	require.Len(t, downloads, 1)
	assert.Equal(t, "192.0.2.1", downloads[0].DownloadedFrom)

	rec = serve(h, verifyForm(token, f.outbox.code(token), key))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "already_consumed", decode(t, rec).Error.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/t/"+token, nil))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestHTTP_UploadValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := newRouter(f)

	tests := []struct {
		name  string
		req   *http.Request
		field string
	}{
		{"missing file", uploadRequest(t, map[string]string{"email": "r@example.com"}, "", nil), "file"},
		{"bad email", uploadRequest(t, map[string]string{"email": "nope"}, "a.txt", []byte("x")), "email"},
		{"ttl not allowed", uploadRequest(t, map[string]string{"email": "r@example.com", "ttl": "7"}, "a.txt", []byte("x")), "ttl"},
		{"too large", uploadRequest(t, map[string]string{"email": "r@example.com"}, "a.txt", make([]byte, 1<<20+1)), "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.req)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, "validation_error", env.Error.Code)
			assert.Contains(t, env.Error.Details, tt.field)
		})
	}
	assert.Zero(t, f.store.Len())
}

func TestHTTP_WrongCredentialsAndLockout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := newRouter(f)

	data := upload(t, h, "x")
	token := data["token"].(string)
	key := data["secret_key"].(string)
	issued := &transfer.Issued{Token: token}
	wrong := f.wrongCode(issued)

	rec := serve(h, verifyJSON(token, wrong, key))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "wrong_code", env.Error.Code)
	assert.EqualValues(t, 2, env.Meta["attempts_remaining"])

	rec = serve(h, verifyJSON(token, f.outbox.code(token), "bad"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env = decode(t, rec)
	assert.Equal(t, "bad_key_format", env.Error.Code)
	assert.EqualValues(t, 1, env.Meta["attempts_remaining"])

	rec = serve(h, verifyJSON(token, wrong, key))
	require.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Retry-After"))
	env = decode(t, rec)
	assert.Equal(t, "locked", env.Error.Code)
	assert.EqualValues(t, 600, env.Meta["retry_after_seconds"])

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/t/"+token, nil))
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestHTTP_MissingCredentials(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := newRouter(f)
	data := upload(t, h, "x")

	rec := serve(h, verifyJSON(data["token"].(string), "", ""))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.Contains(t, env.Error.Details, "otp")
	assert.Contains(t, env.Error.Details, "secret_key")
}

func TestHTTP_UnknownAndExpired(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := newRouter(f)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/t/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec).Error.Code)

	data := upload(t, h, "x")
	token := data["token"].(string)
	f.clock.Advance(5 * time.Minute)

	rec = serve(h, verifyJSON(token, f.outbox.code(token), data["secret_key"].(string)))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "expired", decode(t, rec).Error.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/t/"+token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_QRCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := newRouter(f)
	data := upload(t, h, "x")

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/t/"+data["token"].(string)+"/qr.png?size=128", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/t/"+data["token"].(string)+"/qr.png?size=big", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_RateLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	store := ratelimiter.NewMemoryStore()
	t.Cleanup(store.Close)
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)
	h := newRouter(f, transfer.WithRateLimiter(limiter))

	data := upload(t, h, "x")

	rec := serve(h, verifyJSON(data["token"].(string), "000000", data["secret_key"].(string)))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too_many_requests", decode(t, rec).Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads are not limited.
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/t/"+data["token"].(string), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
