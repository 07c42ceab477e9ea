package transfer

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now. Tests use it to cross expiry and lockout
// boundaries without sleeping.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithNotifier sets the notification sink. Without it notifications are
// dropped.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}
