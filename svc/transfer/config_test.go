package transfer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/blackfile/svc/transfer"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*transfer.Config)
		valid  bool
	}{
		{"defaults", func(*transfer.Config) {}, true},
		{"zero upload size", func(c *transfer.Config) { c.MaxUploadSize = 0 }, false},
		{"no ttls", func(c *transfer.Config) { c.AllowedTTLs = nil }, false},
		{"negative ttl", func(c *transfer.Config) { c.AllowedTTLs = append(c.AllowedTTLs, -time.Minute) }, false},
		{"default ttl not allowed", func(c *transfer.Config) { c.DefaultTTL = 7 * time.Minute }, false},
		{"zero attempts", func(c *transfer.Config) { c.MaxAttempts = 0 }, false},
		{"zero lockout", func(c *transfer.Config) { c.Lockout = 0 }, false},
		{"zero sweep interval", func(c *transfer.Config) { c.SweepInterval = 0 }, false},
		{"zero batch", func(c *transfer.Config) { c.SweepBatchSize = 0 }, false},
		{"relative base url", func(c *transfer.Config) { c.PublicBaseURL = "/t" }, false},
		{"ftp base url", func(c *transfer.Config) { c.PublicBaseURL = "ftp://example.com" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, transfer.ErrInvalidConfig)
		})
	}
}

func TestConfig_MaxTTL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 60*time.Minute, testConfig().MaxTTL())
}

func TestTransfer_State(t *testing.T) {
	t.Parallel()

	lockedUntil := epoch.Add(time.Minute)
	base := transfer.Transfer{ExpiresAt: epoch.Add(10 * time.Minute)}

	tests := []struct {
		name   string
		mutate func(*transfer.Transfer)
		at     time.Time
		want   transfer.State
	}{
		{"pending", func(*transfer.Transfer) {}, epoch, transfer.StatePending},
		{"expired at deadline", func(*transfer.Transfer) {}, epoch.Add(10 * time.Minute), transfer.StateExpired},
		{"consumed", func(tr *transfer.Transfer) { tr.Used = true }, epoch, transfer.StateConsumed},
		{"locked", func(tr *transfer.Transfer) { tr.LockedUntil = &lockedUntil }, epoch, transfer.StateLocked},
		{"lock elapsed", func(tr *transfer.Transfer) { tr.LockedUntil = &lockedUntil }, lockedUntil, transfer.StatePending},
		{"expired beats consumed", func(tr *transfer.Transfer) { tr.Used = true }, epoch.Add(time.Hour), transfer.StateExpired},
		{"consumed beats locked", func(tr *transfer.Transfer) {
			tr.Used = true
			tr.LockedUntil = &lockedUntil
		}, epoch, transfer.StateConsumed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := base
			tt.mutate(&tr)
			assert.Equal(t, tt.want, tr.State(tt.at))
		})
	}
}

func TestTransfer_AttemptsRemaining(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 3, (&transfer.Transfer{}).AttemptsRemaining(3))
	assert.Equal(t, 1, (&transfer.Transfer{Attempts: 2}).AttemptsRemaining(3))
	assert.Equal(t, 1, (&transfer.Transfer{Attempts: 7}).AttemptsRemaining(3))
}
