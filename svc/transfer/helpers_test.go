package transfer_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blackfile/pkg/file"
	"github.com/dmitrymomot/blackfile/pkg/logger"
	"github.com/dmitrymomot/blackfile/svc/transfer"
)

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// blobStore is an in-memory file.Storage and file.Lister with injectable
// failures.
type blobStore struct {
	mu     sync.Mutex
	clock  *clock
	blobs  map[string][]byte
	mod    map[string]time.Time
	putErr error
	getErr error
}

func newBlobStore(c *clock) *blobStore {
	return &blobStore{clock: c, blobs: map[string][]byte{}, mod: map[string]time.Time{}}
}

func (b *blobStore) Put(_ context.Context, ref string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	b.blobs[ref] = slices.Clone(data)
	b.mod[ref] = b.clock.Now()
	return nil
}

func (b *blobStore) Get(_ context.Context, ref string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	data, ok := b.blobs[ref]
	if !ok {
		return nil, file.ErrFileNotFound
	}
	return slices.Clone(data), nil
}

func (b *blobStore) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, ref)
	delete(b.mod, ref)
	return nil
}

func (b *blobStore) List(context.Context) ([]file.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]file.Object, 0, len(b.blobs))
	for ref, data := range b.blobs {
		out = append(out, file.Object{Ref: ref, Size: int64(len(data)), ModTime: b.mod[ref]})
	}
	return out, nil
}

func (b *blobStore) has(ref string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[ref]
	return ok
}

func (b *blobStore) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

// outbox captures notifications so tests can read the emailed code.
type outbox struct {
	mu         sync.Mutex
	codes      map[string]string
	links      map[string]string
	downloaded []*transfer.Transfer
}

func newOutbox() *outbox {
	return &outbox{codes: map[string]string{}, links: map[string]string{}}
}

func (o *outbox) TransferIssued(_ context.Context, t *transfer.Transfer, link, code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[t.Token] = code
	o.links[t.Token] = link
}

func (o *outbox) TransferDownloaded(_ context.Context, t *transfer.Transfer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.downloaded = append(o.downloaded, t)
}

func (o *outbox) code(token string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[token]
}

func (o *outbox) downloads() []*transfer.Transfer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.downloaded)
}

// recordingMetrics counts verify outcomes.
type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
	issued   int
	served   int64
	swept    map[string]int
}

func (m *recordingMetrics) TransferIssued(int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
}

func (m *recordingMetrics) VerifyOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) BytesServed(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.served += n
}

func (m *recordingMetrics) NotificationSent(string, error) {}

func (m *recordingMetrics) Swept(kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.swept == nil {
		m.swept = map[string]int{}
	}
	m.swept[kind] += n
}

func testConfig() transfer.Config {
	return transfer.Config{
		MaxUploadSize:     1 << 20,
		AllowedTTLs:       []time.Duration{5 * time.Minute, 10 * time.Minute, 60 * time.Minute},
		DefaultTTL:        10 * time.Minute,
		MaxAttempts:       3,
		Lockout:           10 * time.Minute,
		FingerprintSecret: "test-fingerprint-secret-0123456789",
		PublicBaseURL:     "https://blackfile.test/",
		SweepInterval:     time.Minute,
		SweepBatchSize:    2,
		NotifyTimezone:    "UTC",
		NotifyTimeout:     time.Second,
		Store:             transfer.StoreMemory,
	}
}

type fixture struct {
	svc     *transfer.Service
	store   *transfer.MemoryStore
	blobs   *blobStore
	outbox  *outbox
	clock   *clock
	metrics *recordingMetrics
}

func newFixture(t *testing.T, mutate ...func(*transfer.Config)) *fixture {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	f := &fixture{
		store:   transfer.NewMemoryStore(),
		outbox:  newOutbox(),
		clock:   &clock{now: epoch},
		metrics: &recordingMetrics{},
	}
	f.blobs = newBlobStore(f.clock)

	svc, err := transfer.NewService(cfg, f.store, f.blobs,
		transfer.WithClock(f.clock.Now),
		transfer.WithLogger(logger.Nop()),
		transfer.WithNotifier(f.outbox),
		transfer.WithMetrics(f.metrics),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) issue(t *testing.T, content string) *transfer.Issued {
	t.Helper()
	issued, err := f.svc.Issue(context.Background(), transfer.IssueParams{
		Email:    "Recipient@Example.com",
		Filename: "report.pdf",
		Content:  []byte(content),
		TTL:      10 * time.Minute,
	})
	require.NoError(t, err)
	return issued
}

func (f *fixture) verify(issued *transfer.Issued, code, key string) (*transfer.Download, error) {
	return f.svc.Verify(context.Background(), transfer.VerifyParams{
		Token:  issued.Token,
		Code:   code,
		Key:    key,
		Origin: "203.0.113.7",
	})
}

func (f *fixture) wrongCode(issued *transfer.Issued) string {
	code := f.outbox.code(issued.Token)
	if strings.HasPrefix(code, "0") {
		return "1" + code[1:]
	}
	return "0" + code[1:]
}

func requireAttempt(t *testing.T, err error, want error, remaining int) {
	t.Helper()
	require.ErrorIs(t, err, want)
	var attempt *transfer.AttemptError
	require.True(t, errors.As(err, &attempt), "expected *AttemptError, got %T", err)
	require.Equal(t, remaining, attempt.AttemptsRemaining)
}
