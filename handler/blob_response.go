package handler

import (
	"mime"
	"net/http"
	"strconv"
)

type blobResponse struct {
	status      int
	contentType string
	filename    string
	header      http.Header
	data        []byte
}

// BlobOption configures a Blob response.
type BlobOption func(*blobResponse)

// WithAttachment sets Content-Disposition to attachment with filename.
// Non-ASCII names are encoded per RFC 2231.
func WithAttachment(filename string) BlobOption {
	return func(b *blobResponse) { b.filename = filename }
}

// WithBlobHeader sets an extra response header.
func WithBlobHeader(key, value string) BlobOption {
	return func(b *blobResponse) { b.header.Set(key, value) }
}

// Blob writes data as the response body with an explicit Content-Length.
func Blob(contentType string, data []byte, opts ...BlobOption) Response {
	b := &blobResponse{
		status:      http.StatusOK,
		contentType: contentType,
		header:      make(http.Header),
		data:        data,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *blobResponse) Render(w http.ResponseWriter, r *http.Request) error {
	h := w.Header()
	for k, v := range b.header {
		h[k] = v
	}
	if b.contentType == "" {
		b.contentType = "application/octet-stream"
	}
	h.Set("Content-Type", b.contentType)
	h.Set("Content-Length", strconv.Itoa(len(b.data)))
	h.Set("X-Content-Type-Options", "nosniff")
	if b.filename != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": b.filename}))
	}

	w.WriteHeader(b.status)
	if r.Method == http.MethodHead {
		return nil
	}
	_, err := w.Write(b.data)
	return err
}
