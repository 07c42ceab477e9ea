package transfer

import (
	"errors"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/blackfile/handler"
	"github.com/dmitrymomot/blackfile/pkg/binder"
	"github.com/dmitrymomot/blackfile/pkg/clientip"
	"github.com/dmitrymomot/blackfile/pkg/file"
	"github.com/dmitrymomot/blackfile/pkg/logger"
	"github.com/dmitrymomot/blackfile/pkg/qrcode"
	"github.com/dmitrymomot/blackfile/pkg/ratelimiter"
	"github.com/dmitrymomot/blackfile/pkg/validator"
)

// formOverhead is the multipart framing allowed on top of the file itself.
const formOverhead = 1 << 20

// HTTPHandler exposes the service over HTTP.
type HTTPHandler struct {
	svc     *Service
	log     *slog.Logger
	limiter ratelimiter.RateLimiter
}

type HTTPOption func(*HTTPHandler)

// WithRateLimiter limits upload and verify requests per client IP.
func WithRateLimiter(l ratelimiter.RateLimiter) HTTPOption {
	return func(h *HTTPHandler) {
		h.limiter = l
	}
}

func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTPHandler) {
		if l != nil {
			h.log = l
		}
	}
}

func NewHTTPHandler(svc *Service, opts ...HTTPOption) *HTTPHandler {
	h := &HTTPHandler{svc: svc, log: svc.log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the transfer routes on r.
func (h *HTTPHandler) Register(r chi.Router) {
	errHandler := handler.NewErrorHandler(h.log)

	r.Get("/t/{token}", handler.Wrap(h.inspect,
		handler.WithBinders[handler.Context, tokenRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, tokenRequest](errHandler),
	))
	r.Get("/t/{token}/qr.png", handler.Wrap(h.qr,
		handler.WithBinders[handler.Context, qrRequest](binder.Path(chi.URLParam), queryBinder),
		handler.WithErrorHandler[handler.Context, qrRequest](errHandler),
	))

	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(ratelimiter.Middleware(h.limiter, clientKey, ratelimiter.WithDenyHandler(denyJSON)))
		}

		r.With(limitBody(h.svc.cfg.MaxUploadSize+formOverhead)).Post("/transfers", handler.Wrap(h.issue,
			handler.WithBinders[handler.Context, issueRequest](binder.Form()),
			handler.WithErrorHandler[handler.Context, issueRequest](errHandler),
		))
		r.Post("/t/{token}", handler.Wrap(h.verify,
			handler.WithBinders[handler.Context, verifyRequest](
				binder.Path(chi.URLParam),
				binder.Form(),
				binder.JSON(),
			),
			handler.WithErrorHandler[handler.Context, verifyRequest](errHandler),
		))
	})
}

type issueRequest struct {
	Email string                `form:"email"`
	TTL   int                   `form:"ttl"` // minutes
	File  *multipart.FileHeader `file:"file"`
}

type issueResponse struct {
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	SecretKey string    `json:"secret_key"`
	SHA256    string    `json:"sha256"`
	ExpiresAt time.Time `json:"expires_at"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	QRCode    string    `json:"qr_code,omitempty"` // data URI of the link
}

func (h *HTTPHandler) issue(ctx handler.Context, req issueRequest) handler.Response {
	if req.File == nil {
		ve := handler.NewValidationError()
		ve.Add("file", "file is required")
		return handler.JSONError(ve)
	}

	ttl := h.svc.cfg.DefaultTTL
	if req.TTL != 0 {
		ttl = time.Duration(req.TTL) * time.Minute
	}

	content, err := readUpload(req.File, h.svc.cfg.MaxUploadSize)
	if err != nil {
		if errors.Is(err, file.ErrFileTooLarge) {
			ve := handler.NewValidationError()
			ve.Add("file", "must be at most "+strconv.FormatInt(h.svc.cfg.MaxUploadSize, 10)+" bytes")
			return handler.JSONError(ve)
		}
		return h.errorResponse(ctx.Request(), err)
	}

	issued, err := h.svc.Issue(ctx, IssueParams{
		Email:    req.Email,
		Filename: req.File.Filename,
		Content:  content,
		TTL:      ttl,
	})
	if err != nil {
		return h.errorResponse(ctx.Request(), err)
	}

	qr, err := qrcode.GenerateBase64Image(issued.Link, qrcode.DefaultSize)
	if err != nil {
		h.log.WarnContext(ctx, "render link QR code", logger.Error(err))
	}

	return handler.JSON(issueResponse{
		Token:     issued.Token,
		Link:      issued.Link,
		SecretKey: issued.SecretKey,
		SHA256:    issued.ContentHash,
		ExpiresAt: issued.ExpiresAt,
		Filename:  issued.Filename,
		Size:      issued.Size,
		QRCode:    qr,
	},
		handler.WithJSONStatus(http.StatusCreated),
		handler.WithJSONHeader("Cache-Control", "no-store"),
	)
}

func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh.Size > limit {
		return nil, file.ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Join(file.ErrFailedToReadFile, err)
	}
	defer f.Close()
	return file.ReadAll(f, limit)
}

type tokenRequest struct {
	Token string `path:"token"`
}

type statusResponse struct {
	State             State     `json:"state"`
	ExpiresAt         time.Time `json:"expires_at"`
	Filename          string    `json:"filename"`
	Size              int64     `json:"size"`
	AttemptsRemaining int       `json:"attempts_remaining"`
}

func (h *HTTPHandler) inspect(ctx handler.Context, req tokenRequest) handler.Response {
	st, err := h.svc.Inspect(ctx, req.Token)
	if err != nil {
		return h.errorResponse(ctx.Request(), err)
	}
	if err := h.stateError(st); err != nil {
		return h.errorResponse(ctx.Request(), err)
	}
	return handler.JSON(statusResponse{
		State:             st.State,
		ExpiresAt:         st.ExpiresAt,
		Filename:          st.Filename,
		Size:              st.Size,
		AttemptsRemaining: st.AttemptsRemaining,
	}, handler.WithJSONHeader("Cache-Control", "no-store"))
}

type qrRequest struct {
	Token string `path:"token"`
	Size  int    `query:"size"`
}

// queryBinder reads the optional size parameter of the QR endpoint.
func queryBinder(r *http.Request, v any) error {
	req, ok := v.(*qrRequest)
	if !ok {
		return binder.ErrBinderNotApplicable
	}
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.Join(binder.ErrInvalidForm, err)
		}
		req.Size = n
	}
	return nil
}

func (h *HTTPHandler) qr(ctx handler.Context, req qrRequest) handler.Response {
	st, err := h.svc.Inspect(ctx, req.Token)
	if err != nil {
		return h.errorResponse(ctx.Request(), err)
	}
	if err := h.stateError(st); err != nil {
		return h.errorResponse(ctx.Request(), err)
	}

	png, err := qrcode.Generate(h.svc.Link(req.Token), req.Size)
	if err != nil {
		return h.errorResponse(ctx.Request(), err)
	}
	return handler.Blob("image/png", png, handler.WithBlobHeader("Cache-Control", "no-store"))
}

type verifyRequest struct {
	Token     string `path:"token" json:"-"`
	OTP       string `form:"otp" json:"otp"`
	SecretKey string `form:"secret_key" json:"secret_key"`
}

func (h *HTTPHandler) verify(ctx handler.Context, req verifyRequest) handler.Response {
	r := ctx.Request()
	dl, err := h.svc.Verify(ctx, VerifyParams{
		Token:  req.Token,
		Code:   req.OTP,
		Key:    req.SecretKey,
		Origin: clientip.GetIPFromContext(r.Context()),
	})
	if err != nil {
		return h.errorResponse(r, err)
	}

	return handler.Blob("application/octet-stream", dl.Content,
		handler.WithAttachment(dl.Filename),
		handler.WithBlobHeader("X-Content-SHA256", dl.ContentHash),
		handler.WithBlobHeader("Cache-Control", "no-store"),
	)
}

// stateError turns a non-pending status into the error Verify would return.
func (h *HTTPHandler) stateError(st *Status) error {
	switch st.State {
	case StateExpired:
		return ErrExpired
	case StateConsumed:
		return ErrAlreadyConsumed
	case StateLocked:
		return &LockedError{Until: h.svc.now().Add(st.RetryAfter)}
	}
	return nil
}

var errorStatus = map[string]int{
	"not_found":         http.StatusNotFound,
	"expired":           http.StatusGone,
	"already_consumed":  http.StatusGone,
	"locked":            http.StatusLocked,
	"wrong_code":        http.StatusUnauthorized,
	"wrong_key":         http.StatusUnauthorized,
	"bad_key_format":    http.StatusBadRequest,
	"decryption_failed": http.StatusUnprocessableEntity,
}

var errorMessages = map[string]string{
	"not_found":         "Transfer not found.",
	"expired":           "This transfer has expired and was deleted.",
	"already_consumed":  "This transfer was already downloaded.",
	"locked":            "Too many failed attempts. Try again later.",
	"wrong_code":        "The code or the secret key is incorrect.",
	"wrong_key":         "The code or the secret key is incorrect.",
	"bad_key_format":    "The secret key is not in the expected format.",
	"decryption_failed": "The file could not be decrypted.",
}

// errorResponse maps service errors onto JSON error bodies.
func (h *HTTPHandler) errorResponse(r *http.Request, err error) handler.Response {
	code := Code(err)

	var (
		locked  *LockedError
		attempt *AttemptError
	)
	switch {
	case errors.As(err, &locked):
		secs := int(math.Ceil(locked.RetryAfter(h.svc.now()).Seconds()))
		return handler.JSONError(&handler.ErrorDetail{Code: code, Message: errorMessages[code]},
			handler.WithJSONStatus(http.StatusLocked),
			handler.WithJSONHeader("Retry-After", strconv.Itoa(secs)),
			handler.WithJSONMeta(map[string]any{"retry_after_seconds": secs}),
		)

	case errors.Is(err, ErrValidation):
		ve := handler.NewValidationError()
		for _, e := range validator.ExtractValidationErrors(err) {
			ve.Add(e.Field, e.Message)
		}
		return handler.JSONError(ve)

	case errors.As(err, &attempt):
		return handler.JSONError(&handler.ErrorDetail{Code: code, Message: errorMessages[code]},
			handler.WithJSONStatus(errorStatus[code]),
			handler.WithJSONMeta(map[string]any{"attempts_remaining": attempt.AttemptsRemaining}),
		)
	}

	if status, ok := errorStatus[code]; ok {
		return handler.JSONError(&handler.ErrorDetail{Code: code, Message: errorMessages[code]},
			handler.WithJSONStatus(status),
		)
	}

	h.log.ErrorContext(r.Context(), "transfer request failed",
		logger.Error(err),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	return handler.JSONError(handler.ErrInternalServerError)
}

func clientKey(r *http.Request) string {
	return clientip.GetIPFromContext(r.Context())
}

func denyJSON(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result, err error) {
	resp := handler.JSONError(handler.ErrTooManyRequests)
	if err != nil {
		resp = handler.JSONError(handler.ErrInternalServerError)
	}
	_ = resp.Render(w, r)
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
