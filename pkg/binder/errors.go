package binder

import "errors"

var (
	// ErrBinderNotApplicable is returned when the request carries a body the
	// binder does not handle. handler.Wrap skips such binders.
	ErrBinderNotApplicable  = errors.New("binder not applicable")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrInvalidForm          = errors.New("invalid form data")
	ErrInvalidJSON          = errors.New("invalid JSON")
	ErrInvalidPath          = errors.New("invalid path parameter")
	ErrBodyTooLarge         = errors.New("request body too large")
)
