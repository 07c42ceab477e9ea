// Package binder decodes HTTP request data into tagged structs.
//
// Each binder is a func(*http.Request, any) error meant for handler.Wrap:
//
//	handler.Wrap(verify, handler.WithBinders(
//		binder.Path(chi.URLParam), // path:"token"
//		binder.Form(),             // form:"code", file:"file"
//		binder.JSON(),             // json:"code"
//	))
//
// Form and JSON return ErrBinderNotApplicable for content types they do not
// handle, so both can be listed and the matching one wins. Oversized bodies
// (enforced upstream with http.MaxBytesReader) surface as ErrBodyTooLarge.
package binder
