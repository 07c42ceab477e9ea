package handler

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
)

// JSONResponse is the envelope every JSON endpoint answers with. Exactly one
// of Data or Error is set; Meta carries side facts such as retry hints.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail is the error half of the envelope. Code is stable and meant for
// clients to branch on; Message is for humans.
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	header http.Header
	body   JSONResponse
}

func (j *jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	maps.Copy(w.Header(), j.header)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) { r.body.Meta = meta }
}

// WithJSONHeader sets a response header, e.g. Retry-After.
func WithJSONHeader(key, value string) JSONOption {
	return func(r *jsonResponse) {
		if r.header == nil {
			r.header = make(http.Header)
		}
		r.header.Set(key, value)
	}
}

// JSON wraps v as the data of a 200 envelope.
func JSON(v any, opts ...JSONOption) Response {
	return newJSON(http.StatusOK, JSONResponse{Data: v}, opts)
}

// JSONError renders an error envelope. err is an *ErrorDetail, used as is
// with status 500 unless WithJSONStatus says otherwise, or an error mapped by
// errorToDetail. Unknown errors never leak their message.
func JSONError(err any, opts ...JSONOption) Response {
	status := http.StatusInternalServerError
	var detail *ErrorDetail
	switch e := err.(type) {
	case *ErrorDetail:
		detail = e
	case error:
		detail, status = errorToDetail(e)
	default:
		detail = internalDetail()
	}
	return newJSON(status, JSONResponse{Error: detail}, opts)
}

func newJSON(status int, body JSONResponse, opts []JSONOption) *jsonResponse {
	r := &jsonResponse{status: status, body: body}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func errorToDetail(err error) (*ErrorDetail, int) {
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return &ErrorDetail{
			Code:    "validation_error",
			Message: valErr.Error(),
			Details: maps.Clone(map[string][]string(valErr)),
		}, http.StatusUnprocessableEntity
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return &ErrorDetail{Code: httpErr.Key, Message: http.StatusText(httpErr.Code)}, httpErr.Code
	}
	return internalDetail(), http.StatusInternalServerError
}

func internalDetail() *ErrorDetail {
	return &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}
}
