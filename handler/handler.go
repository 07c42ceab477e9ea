package handler

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/blackfile/pkg/binder"
)

// HandlerFunc is a typed endpoint: it receives the bound request value and
// returns a Response instead of writing to the ResponseWriter.
//
//	verify := handler.HandlerFunc[handler.Context, VerifyRequest](
//		func(ctx handler.Context, req VerifyRequest) handler.Response {
//			dl, err := svc.Verify(ctx, ...)
//			if err != nil {
//				return handler.JSONError(err)
//			}
//			return handler.Blob("application/octet-stream", dl.Content)
//		},
//	)
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response writes status, headers and body. A Render error goes to the
// ErrorHandler, so Render must not have written anything when it fails.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind fills v from r. Returning binder.ErrBinderNotApplicable passes the
// request on to the next binder.
type Bind func(r *http.Request, v any) error

// ErrorHandler renders binding, nil-response and render failures.
type ErrorHandler[C Context] func(ctx C, err error)

// Decorator wraps a HandlerFunc. The first decorator given to Wrap runs
// outermost.
type Decorator[C Context, R any] func(HandlerFunc[C, R]) HandlerFunc[C, R]

type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	binders      []Bind
	errorHandler ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request) C
	decorators   []Decorator[C, R]
}

// WithBinders appends binders; they run in the given order.
//
//	r.Post("/t/{token}", handler.Wrap(verify,
//		handler.WithBinders[handler.Context, VerifyRequest](
//			binder.Path(chi.URLParam),
//			binder.Form(),
//			binder.JSON(),
//		),
//	))
func WithBinders[C Context, R any](binders ...Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.binders = append(c.binders, binders...)
	}
}

func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithContextFactory is required when C is a type other than Context.
func WithContextFactory[C Context, R any](f func(http.ResponseWriter, *http.Request) C) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if f != nil {
			c.newContext = f
		}
	}
}

func WithDecorators[C Context, R any](decorators ...Decorator[C, R]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.decorators = append(c.decorators, decorators...)
	}
}

// renderError is the fallback ErrorHandler: the JSON envelope, no logging.
func renderError[C Context](ctx C, err error) {
	_ = JSONError(ClassifyError(err)).Render(ctx.ResponseWriter(), ctx.Request())
}

// defaultContext panics on the first request when C is not satisfied by the
// value NewContext returns.
func defaultContext[C Context](w http.ResponseWriter, r *http.Request) C {
	c, ok := NewContext(w, r).(C)
	if !ok {
		panic("handler: custom context type needs WithContextFactory")
	}
	return c
}

// Wrap adapts h to http.HandlerFunc.
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{
		errorHandler: renderError[C],
		newContext:   defaultContext[C],
	}
	for _, opt := range opts {
		opt(cfg)
	}

	for i := len(cfg.decorators) - 1; i >= 0; i-- {
		h = cfg.decorators[i](h)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := cfg.newContext(w, r)

		var req R
		for _, bind := range cfg.binders {
			err := bind(r, &req)
			if err == nil || errors.Is(err, binder.ErrBinderNotApplicable) {
				continue
			}
			cfg.errorHandler(ctx, err)
			return
		}

		resp := h(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
