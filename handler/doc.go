// Package handler adapts typed handler functions to net/http.
//
// A HandlerFunc receives a Context and a request struct populated by the
// configured binders, and returns a Response that renders itself:
//
//	func inspect(ctx handler.Context, req InspectRequest) handler.Response {
//		st, err := svc.Inspect(ctx, req.Token)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(st)
//	}
//
//	r.Get("/t/{token}", handler.Wrap(inspect,
//		handler.WithBinders[handler.Context, InspectRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[handler.Context, InspectRequest](handler.NewErrorHandler(log)),
//	))
//
// # Responses
//
// JSON and JSONError render the envelope {data, meta, error}. Errors carry a
// machine-readable code: HTTPError values render their Key and status,
// ValidationError renders 422 "validation_error" with per-field details, and
// any other error renders 500 "internal_error" without leaking its message.
//
// Blob writes raw bytes with an explicit Content-Length and, with
// WithAttachment, a Content-Disposition header.
//
// # Errors
//
// Binding failures and render failures go to the ErrorHandler. NewErrorHandler
// maps binder errors onto 400, 413 and 415 responses and logs every error
// with the request ID.
package handler
