package otp

import "errors"

var (
	ErrFailedToGenerateCode = errors.New("failed to generate one-time code")
	ErrFailedToGenerateSalt = errors.New("failed to generate salt")
)
