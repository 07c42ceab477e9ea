package transfer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/blackfile/pkg/async"
	"github.com/dmitrymomot/blackfile/pkg/email"
	"github.com/dmitrymomot/blackfile/pkg/email/templates"
	"github.com/dmitrymomot/blackfile/pkg/logger"
)

// Notifier delivers transfer notifications. Implementations must not block
// the caller and must never report failures back to it.
type Notifier interface {
	TransferIssued(ctx context.Context, t *Transfer, link, code string)
	TransferDownloaded(ctx context.Context, t *Transfer)
}

const (
	notifyIssue    = "issue"
	notifyDownload = "download"
)

// EmailNotifier sends each notification once, in the background, through an
// email.EmailSender.
type EmailNotifier struct {
	sender  email.EmailSender
	loc     *time.Location
	timeout time.Duration
	log     *slog.Logger
	metrics Metrics

	mu      sync.Mutex
	pending []*async.Future[struct{}]
}

type NotifierOption func(*EmailNotifier)

func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *EmailNotifier) {
		if l != nil {
			n.log = l
		}
	}
}

func WithNotifierMetrics(m Metrics) NotifierOption {
	return func(n *EmailNotifier) {
		if m != nil {
			n.metrics = m
		}
	}
}

// WithLocation sets the timezone of timestamps in email bodies.
func WithLocation(loc *time.Location) NotifierOption {
	return func(n *EmailNotifier) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithSendTimeout bounds a single send attempt.
func WithSendTimeout(d time.Duration) NotifierOption {
	return func(n *EmailNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

func NewEmailNotifier(sender email.EmailSender, opts ...NotifierOption) *EmailNotifier {
	if sender == nil {
		panic("transfer: email sender is required")
	}
	n := &EmailNotifier{
		sender:  sender,
		loc:     time.UTC,
		timeout: 15 * time.Second,
		log:     slog.Default(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *EmailNotifier) TransferIssued(ctx context.Context, t *Transfer, link, code string) {
	body := issueEmail(t.Filename, link, code, t.ExpiresAt.In(n.loc))
	n.dispatch(ctx, notifyIssue, t.Token, email.SendEmailParams{
		SendTo:  t.RecipientEmail,
		Subject: issueSubject,
		Tag:     notifyIssue,
	}, body)
}

func (n *EmailNotifier) TransferDownloaded(ctx context.Context, t *Transfer) {
	at := time.Now()
	if t.DownloadedAt != nil {
		at = *t.DownloadedAt
	}
	body := downloadEmail(t.Filename, t.DownloadedFrom, at.In(n.loc))
	n.dispatch(ctx, notifyDownload, t.Token, email.SendEmailParams{
		SendTo:  t.RecipientEmail,
		Subject: downloadSubject(t.Filename),
		Tag:     notifyDownload,
	}, body)
}

func (n *EmailNotifier) dispatch(ctx context.Context, kind, token string, params email.SendEmailParams, body templ.Component) {
	// Detached from the request so a finished response does not cancel delivery.
	ctx = context.WithoutCancel(ctx)

	f := async.Async(ctx, params, func(ctx context.Context, p email.SendEmailParams) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		html, err := templates.Render(ctx, body)
		if err == nil {
			p.BodyHTML = html
			err = n.sender.SendEmail(ctx, p)
		}
		n.metrics.NotificationSent(kind, err)
		if err != nil {
			n.log.ErrorContext(ctx, "notification failed",
				logger.Event(kind),
				logger.Token(token),
				logger.Error(err),
			)
		}
		return struct{}{}, err
	})

	n.track(f)
}

func (n *EmailNotifier) track(f *async.Future[struct{}]) {
	n.mu.Lock()
	defer n.mu.Unlock()

	live := n.pending[:0]
	for _, p := range n.pending {
		if !p.IsComplete() {
			live = append(live, p)
		}
	}
	n.pending = append(live, f)
}

// Flush waits up to timeout for in-flight notifications. It returns
// async.ErrTimeout if some are still running.
func (n *EmailNotifier) Flush(timeout time.Duration) error {
	n.mu.Lock()
	pending := append([]*async.Future[struct{}](nil), n.pending...)
	n.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for _, f := range pending {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if !f.IsComplete() {
				return async.ErrTimeout
			}
			continue
		}
		if _, err := f.AwaitWithTimeout(remaining); errors.Is(err, async.ErrTimeout) {
			return err
		}
	}
	return nil
}
