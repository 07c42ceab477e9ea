package transfer

import "context"

// Metrics receives lifecycle events. *metrics.Metrics satisfies it.
type Metrics interface {
	TransferIssued(size int64)
	VerifyOutcome(outcome string)
	BytesServed(n int64)
	NotificationSent(kind string, err error)
	Swept(kind string, n int)
}

type nopMetrics struct{}

func (nopMetrics) TransferIssued(int64)           {}
func (nopMetrics) VerifyOutcome(string)           {}
func (nopMetrics) BytesServed(int64)              {}
func (nopMetrics) NotificationSent(string, error) {}
func (nopMetrics) Swept(string, int)              {}

type nopNotifier struct{}

func (nopNotifier) TransferIssued(context.Context, *Transfer, string, string) {}
func (nopNotifier) TransferDownloaded(context.Context, *Transfer)             {}
