package transfer

import (
	"fmt"
	"net/url"
	"slices"
	"time"
)

type Config struct {
	MaxUploadSize     int64           `env:"TRANSFER_MAX_UPLOAD_SIZE" envDefault:"10485760"`
	AllowedTTLs       []time.Duration `env:"TRANSFER_ALLOWED_TTLS" envDefault:"5m,10m,60m"`
	DefaultTTL        time.Duration   `env:"TRANSFER_DEFAULT_TTL" envDefault:"10m"`
	MaxAttempts       int             `env:"OTP_MAX_TRIES" envDefault:"3"`
	Lockout           time.Duration   `env:"OTP_LOCKOUT" envDefault:"10m"`
	FingerprintSecret string          `env:"KEY_FINGERPRINT_SECRET,required"`
	PublicBaseURL     string          `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	SweepInterval     time.Duration   `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepBatchSize    int             `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
	NotifyTimezone    string          `env:"NOTIFY_TIMEZONE" envDefault:"UTC"`
	NotifyTimeout     time.Duration   `env:"NOTIFY_TIMEOUT" envDefault:"15s"`
	Store             string          `env:"TRANSFER_STORE" envDefault:"postgres"` // postgres, mongo or memory
}

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Validate checks the settings the service cannot run without.
func (c Config) Validate() error {
	switch {
	case c.MaxUploadSize <= 0:
		return fmt.Errorf("%w: max upload size must be positive", ErrInvalidConfig)
	case len(c.AllowedTTLs) == 0:
		return fmt.Errorf("%w: at least one TTL must be allowed", ErrInvalidConfig)
	case slices.ContainsFunc(c.AllowedTTLs, func(d time.Duration) bool { return d <= 0 }):
		return fmt.Errorf("%w: TTLs must be positive", ErrInvalidConfig)
	case !slices.Contains(c.AllowedTTLs, c.DefaultTTL):
		return fmt.Errorf("%w: default TTL %v is not in the allowed list", ErrInvalidConfig, c.DefaultTTL)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidConfig)
	case c.Lockout <= 0:
		return fmt.Errorf("%w: lockout must be positive", ErrInvalidConfig)
	case c.SweepInterval <= 0:
		return fmt.Errorf("%w: sweep interval must be positive", ErrInvalidConfig)
	case c.SweepBatchSize < 1:
		return fmt.Errorf("%w: sweep batch size must be at least 1", ErrInvalidConfig)
	}

	u, err := url.Parse(c.PublicBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: public base URL must be an absolute http(s) URL", ErrInvalidConfig)
	}
	return nil
}

// MaxTTL is the longest allowed lifetime.
func (c Config) MaxTTL() time.Duration {
	return slices.Max(c.AllowedTTLs)
}
