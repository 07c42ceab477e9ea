package transfer

import (
	"context"
	"time"
)

// Store persists transfer records. Every mutation is a single atomic
// operation per token; the service holds no locks of its own.
type Store interface {
	// Create inserts a new record or returns ErrDuplicateToken.
	Create(ctx context.Context, t *Transfer) error
	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, token string) (*Transfer, error)
	// ReserveAttempt takes one attempt from a record that is unused,
	// unexpired and unlocked at now. When the new count reaches maxAttempts
	// it sets LockedUntil to lockUntil. It returns the updated record, or
	// ErrAttemptRefused when no such record exists.
	ReserveAttempt(ctx context.Context, token string, maxAttempts int, now, lockUntil time.Time) (*Transfer, error)
	// ReleaseAttempt returns a reserved attempt to an unused record and
	// clears its lock. Missing or used records are not an error.
	ReleaseAttempt(ctx context.Context, token string) error
	// MarkUsed flips Used on an unused record and records the origin.
	// It returns ErrAlreadyConsumed when no unused record matched.
	MarkUsed(ctx context.Context, token, origin string, at time.Time) error
	// Delete removes the record. Missing records are not an error.
	Delete(ctx context.Context, token string) error
	// ListExpired returns up to limit records with ExpiresAt <= now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Transfer, error)
}
