package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/blackfile/pkg/binder"
	"github.com/dmitrymomot/blackfile/pkg/logger"
	"github.com/dmitrymomot/blackfile/pkg/requestid"
)

// ClassifyError maps binding and handler errors onto HTTPError values.
// Errors that are already HTTPError or ValidationError pass through.
func ClassifyError(err error) error {
	var (
		httpErr HTTPError
		valErr  ValidationError
	)
	switch {
	case errors.As(err, &httpErr), errors.As(err, &valErr):
		return err
	case errors.Is(err, binder.ErrBodyTooLarge):
		return ErrRequestEntityTooLarge
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return ErrUnsupportedMediaType
	case errors.Is(err, binder.ErrInvalidForm),
		errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrInvalidPath),
		errors.Is(err, binder.ErrMissingContentType):
		return ErrBadRequest
	default:
		return ErrInternalServerError
	}
}

// NewErrorHandler returns an ErrorHandler that logs err and renders it as a
// JSON error body. Client errors are logged at Warn, server errors at Error.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		classified := ClassifyError(err)

		resp := JSONError(classified)
		status := http.StatusUnprocessableEntity
		var httpErr HTTPError
		if errors.As(classified, &httpErr) {
			status = httpErr.Code
		}

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.Error("failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
		}
	}
}
