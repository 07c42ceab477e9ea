package async

import "errors"

var (
	ErrTimeout = errors.New("async: timed out waiting for the future")
	ErrPanic   = errors.New("async: function panicked")
)
