package transfer

import (
	"time"
)

// State is the lifecycle position of a transfer, derived from its record.
type State string

const (
	StatePending  State = "pending"
	StateLocked   State = "locked"
	StateExpired  State = "expired"
	StateConsumed State = "consumed"
)

// Transfer is the persisted metadata of a single-use encrypted upload.
// The symmetric key is never part of it; only its fingerprint is.
type Transfer struct {
	Token          string // 128-bit hex; primary key and link path segment
	RecipientEmail string
	OTPHash        string
	OTPSalt        string
	KeyID          string // keyed fingerprint of the secret key bound to Token
	Filename       string
	BlobRef        string
	Nonce          []byte
	ContentHash    string // hex SHA-256 of the plaintext
	Size           int64
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Used           bool
	Attempts       int
	LockedUntil    *time.Time
	DownloadedFrom string
	DownloadedAt   *time.Time
}

// State derives the lifecycle state at now. Expiry wins over every other
// condition, then consumption, then lockout.
func (t *Transfer) State(now time.Time) State {
	switch {
	case t.IsExpired(now):
		return StateExpired
	case t.Used:
		return StateConsumed
	case t.IsLocked(now):
		return StateLocked
	default:
		return StatePending
	}
}

// IsExpired reports whether now is at or past ExpiresAt.
func (t *Transfer) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *Transfer) IsLocked(now time.Time) bool {
	return t.LockedUntil != nil && now.Before(*t.LockedUntil)
}

// AttemptsRemaining returns the guesses left before the next lockout. Once a
// lockout has elapsed the counter stays exhausted, so every further failure
// locks again and a single attempt is available per lockout window.
func (t *Transfer) AttemptsRemaining(maxAttempts int) int {
	if left := maxAttempts - t.Attempts; left > 0 {
		return left
	}
	return 1
}

// BlobRefFor returns the blob reference of a token.
func BlobRefFor(token string) string {
	return token + blobSuffix
}

const blobSuffix = ".blob"

// Status is the externally visible view returned by Inspect.
type Status struct {
	State             State
	ExpiresAt         time.Time
	Filename          string
	Size              int64
	AttemptsRemaining int
	RetryAfter        time.Duration // set when State is StateLocked
}

// IssueParams is the input of Issue.
type IssueParams struct {
	Email    string
	Filename string
	Content  []byte
	TTL      time.Duration
}

// Issued is returned once to the sender. SecretKey is not recoverable later.
type Issued struct {
	Token       string
	Link        string
	SecretKey   string
	ContentHash string
	ExpiresAt   time.Time
	Filename    string
	Size        int64
}

// VerifyParams is the input of Verify. Origin is the client address
// recorded on release.
type VerifyParams struct {
	Token  string
	Code   string
	Key    string
	Origin string
}

// Download is the released plaintext.
type Download struct {
	Filename    string
	Size        int64
	ContentHash string
	Content     []byte
}
