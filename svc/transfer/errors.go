package transfer

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("transfer not found")
	ErrExpired          = errors.New("transfer expired")
	ErrAlreadyConsumed  = errors.New("transfer already consumed")
	ErrLocked           = errors.New("transfer locked")
	ErrWrongCode        = errors.New("wrong one-time code")
	ErrBadKeyFormat     = errors.New("malformed secret key")
	ErrWrongKey         = errors.New("wrong secret key")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrStorage          = errors.New("storage failure")
	ErrDuplicateToken   = errors.New("duplicate transfer token")
	ErrAttemptRefused   = errors.New("attempt refused")
	ErrInvalidConfig    = errors.New("invalid transfer config")
)

// AttemptError is a failed credential check that consumed one attempt.
type AttemptError struct {
	Err               error
	AttemptsRemaining int
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%v: %d attempts remaining", e.Err, e.AttemptsRemaining)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// LockedError reports a locked transfer and when it unlocks.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%v until %s", ErrLocked, e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return ErrLocked }

// RetryAfter is the remaining lockout at now, never negative.
func (e *LockedError) RetryAfter(now time.Time) time.Duration {
	return max(e.Until.Sub(now), 0)
}

func storageErr(err error) error {
	return errors.Join(ErrStorage, err)
}

var codes = []struct {
	err  error
	code string
}{
	{ErrValidation, "validation_error"},
	{ErrNotFound, "not_found"},
	{ErrExpired, "expired"},
	{ErrAlreadyConsumed, "already_consumed"},
	{ErrLocked, "locked"},
	{ErrWrongCode, "wrong_code"},
	{ErrBadKeyFormat, "bad_key_format"},
	{ErrWrongKey, "wrong_key"},
	{ErrDecryptionFailed, "decryption_failed"},
}

// Code returns the stable machine-readable code of err: "success" for nil
// and "internal_error" for anything unrecognized.
func Code(err error) string {
	if err == nil {
		return "success"
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}
