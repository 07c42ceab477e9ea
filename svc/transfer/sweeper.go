package transfer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/blackfile/pkg/logger"
)

var ErrInvalidSweepInterval = errors.New("sweep interval must be positive")

// Sweeper periodically purges expired transfers and orphaned blobs. Purge is
// idempotent, so it runs safely alongside live requests.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

type SweeperOption func(*Sweeper)

// WithSweepInterval overrides Config.SweepInterval.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.interval = d
	}
}

func NewSweeper(svc *Service, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		svc:      svc,
		interval: svc.cfg.SweepInterval,
		log:      svc.log.With(logger.Component("sweeper")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start sweeps immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return ErrInvalidSweepInterval
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single expired and orphan pass. Failures are logged.
func (s *Sweeper) RunOnce(ctx context.Context) {
	start := time.Now()
	now := s.svc.now()

	expired, err := s.svc.SweepExpired(ctx, now)
	if err != nil && ctx.Err() == nil {
		s.log.ErrorContext(ctx, "expired sweep failed", logger.Error(err))
	}

	orphans, err := s.svc.SweepOrphans(ctx, now)
	if err != nil && ctx.Err() == nil {
		s.log.ErrorContext(ctx, "orphan sweep failed", logger.Error(err))
	}

	if expired > 0 || orphans > 0 {
		s.log.InfoContext(ctx, "sweep completed",
			slog.Int("expired", expired),
			slog.Int("orphans", orphans),
			logger.Duration(time.Since(start)),
		)
	}
}
