// Package async runs functions in goroutines and exposes their results as
// generic futures.
//
//	f := async.Async(context.WithoutCancel(ctx), params, send)
//	if _, err := f.AwaitWithTimeout(5 * time.Second); err != nil {
//		// ErrTimeout or the error returned by send
//	}
//
// A function whose context is already cancelled is never called.
package async
