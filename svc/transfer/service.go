package transfer

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/blackfile/pkg/file"
	"github.com/dmitrymomot/blackfile/pkg/logger"
	"github.com/dmitrymomot/blackfile/pkg/otp"
	"github.com/dmitrymomot/blackfile/pkg/secrets"
	"github.com/dmitrymomot/blackfile/pkg/validator"
)

const maxTokenAttempts = 3

// Service runs the transfer lifecycle: issue, inspect, verify and purge.
// It holds no per-token state; atomicity comes from the Store.
type Service struct {
	cfg      Config
	store    Store
	blobs    file.Storage
	fp       *secrets.Fingerprinter
	notifier Notifier
	metrics  Metrics
	log      *slog.Logger
	now      func() time.Time
}

// NewService validates cfg and wires the service. It panics when store or
// blobs is nil.
func NewService(cfg Config, store Store, blobs file.Storage, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		panic("transfer: store is required")
	}
	if blobs == nil {
		panic("transfer: blob storage is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fp, err := secrets.NewFingerprinter(cfg.FingerprintSecret)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	s := &Service{
		cfg:      cfg,
		store:    store,
		blobs:    blobs,
		fp:       fp,
		notifier: nopNotifier{},
		metrics:  nopMetrics{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("transfer"))
	return s, nil
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Link returns the public verification URL of token.
func (s *Service) Link(token string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/t/" + token
}

// RFC 5321 path limit.
const maxEmailLen = 254

// Issue encrypts the content, stores the ciphertext and the record, and
// sends the code to the recipient. The secret key is only in the result.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*Issued, error) {
	recipient := strings.ToLower(strings.TrimSpace(p.Email))
	size := int64(len(p.Content))

	if err := validator.Apply(
		validator.Required("email", recipient),
		validator.ValidEmail("email", recipient),
		validator.MaxLen("email", recipient, maxEmailLen),
		validator.InList("ttl", p.TTL, s.cfg.AllowedTTLs),
		validator.Required("filename", p.Filename),
		validator.Rule{
			Check: func() bool { return size > 0 },
			Error: validator.ValidationError{Field: "file", Message: "file is empty"},
		},
		validator.MaxNum("file", size, s.cfg.MaxUploadSize),
	); err != nil {
		return nil, errors.Join(ErrValidation, err)
	}

	filename := file.SanitizeFilename(p.Filename)

	for range maxTokenAttempts {
		issued, err := s.issue(ctx, recipient, filename, p)
		if errors.Is(err, ErrDuplicateToken) {
			s.log.WarnContext(ctx, "token collision, retrying")
			continue
		}
		return issued, err
	}
	return nil, ErrDuplicateToken
}

func (s *Service) issue(ctx context.Context, recipient, filename string, p IssueParams) (*Issued, error) {
	token, err := secrets.GenerateToken()
	if err != nil {
		return nil, err
	}

	// A collision must be caught before Put, which would overwrite the
	// existing transfer's ciphertext.
	if _, err := s.store.Get(ctx, token); err == nil {
		return nil, ErrDuplicateToken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	key, nonce, ciphertext, err := secrets.Encrypt(p.Content)
	if err != nil {
		return nil, err
	}
	defer secrets.Clear(key)

	blobRef := BlobRefFor(token)
	if err := s.blobs.Put(ctx, blobRef, ciphertext); err != nil {
		return nil, storageErr(err)
	}

	code, err := otp.Generate()
	if err != nil {
		s.discardBlob(ctx, blobRef)
		return nil, err
	}
	salt, err := otp.NewSalt()
	if err != nil {
		s.discardBlob(ctx, blobRef)
		return nil, err
	}

	now := s.now().UTC()
	t := &Transfer{
		Token:          token,
		RecipientEmail: recipient,
		OTPHash:        otp.Hash(code, salt),
		OTPSalt:        salt,
		KeyID:          s.fp.Fingerprint(key, token),
		Filename:       filename,
		BlobRef:        blobRef,
		Nonce:          nonce,
		ContentHash:    secrets.SHA256Hex(p.Content),
		Size:           int64(len(p.Content)),
		CreatedAt:      now,
		ExpiresAt:      now.Add(p.TTL),
	}

	if err := s.store.Create(ctx, t); err != nil {
		// On a duplicate the blob may belong to the other record.
		if !errors.Is(err, ErrDuplicateToken) {
			s.discardBlob(ctx, blobRef)
		}
		return nil, err
	}

	link := s.Link(token)
	s.notifier.TransferIssued(ctx, t, link, code)
	s.metrics.TransferIssued(t.Size)
	s.log.InfoContext(ctx, "transfer issued",
		logger.Token(token),
		slog.Int64("size", t.Size),
		slog.Duration("ttl", p.TTL),
	)

	return &Issued{
		Token:       token,
		Link:        link,
		SecretKey:   secrets.EncodeKey(key),
		ContentHash: t.ContentHash,
		ExpiresAt:   t.ExpiresAt,
		Filename:    filename,
		Size:        t.Size,
	}, nil
}

func (s *Service) discardBlob(ctx context.Context, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		s.log.ErrorContext(ctx, "discard orphaned blob", slog.String("blob", ref), logger.Error(err))
	}
}

// Inspect reports the state of a transfer without touching credentials.
// Expired transfers are purged as a side effect.
func (s *Service) Inspect(ctx context.Context, token string) (*Status, error) {
	t, err := s.guard(ctx, token)

	var locked *LockedError
	switch {
	case err == nil:
		return &Status{
			State:             StatePending,
			ExpiresAt:         t.ExpiresAt,
			Filename:          t.Filename,
			Size:              t.Size,
			AttemptsRemaining: t.AttemptsRemaining(s.cfg.MaxAttempts),
		}, nil
	case errors.Is(err, ErrExpired):
		return &Status{State: StateExpired}, nil
	case errors.Is(err, ErrAlreadyConsumed):
		return &Status{State: StateConsumed}, nil
	case errors.As(err, &locked):
		return &Status{State: StateLocked, RetryAfter: locked.RetryAfter(s.now())}, nil
	default:
		return nil, err
	}
}

// guard loads a transfer and rejects it when expired, consumed or locked,
// in that order.
func (s *Service) guard(ctx context.Context, token string) (*Transfer, error) {
	if !validToken(token) {
		return nil, ErrNotFound
	}

	t, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch t.State(now) {
	case StateExpired:
		if err := s.Purge(ctx, t); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	case StateConsumed:
		return nil, ErrAlreadyConsumed
	case StateLocked:
		return nil, &LockedError{Until: *t.LockedUntil}
	}
	return t, nil
}

// Verify checks the code and the key and releases the plaintext exactly
// once. Checks run in a fixed order: expiry, consumption, lock, code, key
// format, key fingerprint, blob read, decryption. Every credential check
// holds a reserved attempt, so concurrent requests share the same budget.
func (s *Service) Verify(ctx context.Context, p VerifyParams) (*Download, error) {
	d, err := s.verify(ctx, p)
	s.metrics.VerifyOutcome(Code(err))
	return d, err
}

func (s *Service) verify(ctx context.Context, p VerifyParams) (*Download, error) {
	t, err := s.guard(ctx, p.Token)
	if err != nil {
		return nil, err
	}

	code := otp.Normalize(p.Code)
	key := strings.TrimSpace(p.Key)
	if err := validator.Apply(
		validator.Required("otp", code),
		validator.Required("secret_key", key),
	); err != nil {
		return nil, errors.Join(ErrValidation, err)
	}

	t, err = s.reserveAttempt(ctx, t.Token)
	if err != nil {
		return nil, err
	}

	if !otp.Valid(code) || !otp.Verify(code, t.OTPSalt, t.OTPHash) {
		return nil, s.failAttempt(ctx, t, ErrWrongCode)
	}

	raw, err := secrets.DecodeKey(key)
	if err != nil {
		return nil, s.failAttempt(ctx, t, ErrBadKeyFormat)
	}
	defer secrets.Clear(raw)

	if !s.fp.Match(raw, t.Token, t.KeyID) {
		return nil, s.failAttempt(ctx, t, ErrWrongKey)
	}

	ciphertext, err := s.blobs.Get(ctx, t.BlobRef)
	if errors.Is(err, file.ErrFileNotFound) {
		return nil, s.blobMissing(ctx, t)
	}
	if err != nil {
		s.releaseAttempt(ctx, t)
		return nil, storageErr(err)
	}

	plaintext, err := secrets.Decrypt(raw, t.Nonce, ciphertext)
	if err != nil {
		s.releaseAttempt(ctx, t)
		s.log.ErrorContext(ctx, "ciphertext failed authentication with a matching key",
			logger.Token(t.Token),
			logger.Error(err),
		)
		return nil, ErrDecryptionFailed
	}

	now := s.now().UTC()
	if err := s.store.MarkUsed(ctx, t.Token, p.Origin, now); err != nil {
		return nil, err
	}

	if err := s.blobs.Delete(ctx, t.BlobRef); err != nil {
		s.log.ErrorContext(ctx, "delete consumed blob", logger.Token(t.Token), logger.Error(err))
	}

	t.Used = true
	t.DownloadedFrom = p.Origin
	t.DownloadedAt = &now
	s.notifier.TransferDownloaded(ctx, t)
	s.metrics.BytesServed(int64(len(plaintext)))
	s.log.InfoContext(ctx, "transfer consumed", logger.Token(t.Token), logger.ClientIP(p.Origin))

	return &Download{
		Filename:    t.Filename,
		Size:        int64(len(plaintext)),
		ContentHash: t.ContentHash,
		Content:     plaintext,
	}, nil
}

// reserveAttempt takes one attempt before any credential is compared. A
// refusal means the record changed after guard read it; guard is run again
// to report the current state.
func (s *Service) reserveAttempt(ctx context.Context, token string) (*Transfer, error) {
	now := s.now()
	t, err := s.store.ReserveAttempt(ctx, token, s.cfg.MaxAttempts, now.UTC(), now.Add(s.cfg.Lockout).UTC())
	if !errors.Is(err, ErrAttemptRefused) {
		return t, err
	}
	if _, err := s.guard(ctx, token); err != nil {
		return nil, err
	}
	// A concurrent release reopened the record in between.
	return nil, ErrLocked
}

// releaseAttempt hands back the attempt of a request whose credentials
// matched but whose download failed for reasons outside the caller's control.
func (s *Service) releaseAttempt(ctx context.Context, t *Transfer) {
	if err := s.store.ReleaseAttempt(ctx, t.Token); err != nil {
		s.log.ErrorContext(ctx, "release attempt", logger.Token(t.Token), logger.Error(err))
	}
}

// failAttempt reports a failed credential check against the record returned
// by reserveAttempt. The error is a *LockedError when that reservation
// locked the transfer.
func (s *Service) failAttempt(ctx context.Context, t *Transfer, cause error) error {
	if t.IsLocked(s.now()) {
		s.log.InfoContext(ctx, "transfer locked",
			logger.Token(t.Token),
			logger.Event(Code(cause)),
			slog.Int("attempts", t.Attempts),
		)
		return &LockedError{Until: *t.LockedUntil}
	}
	return &AttemptError{Err: cause, AttemptsRemaining: t.AttemptsRemaining(s.cfg.MaxAttempts)}
}

// blobMissing handles a record whose ciphertext is gone. A concurrent winner
// leaves a used tombstone behind; anything else is purged.
func (s *Service) blobMissing(ctx context.Context, t *Transfer) error {
	current, err := s.store.Get(ctx, t.Token)
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrAlreadyConsumed
	case err != nil:
		return err
	case !current.Used:
		if err := s.Purge(ctx, current); err != nil {
			return err
		}
	}
	return ErrAlreadyConsumed
}

// Purge deletes the blob and the record. Missing pieces are ignored.
func (s *Service) Purge(ctx context.Context, t *Transfer) error {
	ref := t.BlobRef
	if ref == "" {
		ref = BlobRefFor(t.Token)
	}
	if err := s.blobs.Delete(ctx, ref); err != nil && !errors.Is(err, file.ErrFileNotFound) {
		return storageErr(err)
	}
	if err := s.store.Delete(ctx, t.Token); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	s.log.DebugContext(ctx, "transfer purged", logger.Token(t.Token))
	return nil
}

// SweepExpired purges every record expired at now, in batches. It stops at
// the first purge failure so a broken record cannot spin the loop.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		batch, err := s.store.ListExpired(ctx, now, s.cfg.SweepBatchSize)
		if err != nil {
			return total, err
		}
		for _, t := range batch {
			if err := s.Purge(ctx, t); err != nil {
				s.metrics.Swept("records", total)
				return total, err
			}
			total++
		}
		if len(batch) < s.cfg.SweepBatchSize {
			break
		}
	}
	s.metrics.Swept("records", total)
	return total, nil
}

// SweepOrphans deletes blobs older than the longest TTL whose record is gone
// or already consumed, and stale temporary files of interrupted writes. It is
// a no-op for blob storages that can do neither.
func (s *Service) SweepOrphans(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.cfg.MaxTTL())
	removed := 0

	if pruner, ok := s.blobs.(file.TempPruner); ok {
		n, err := pruner.PruneTemp(ctx, cutoff)
		removed += n
		if err != nil {
			return removed, storageErr(err)
		}
	}

	lister, ok := s.blobs.(file.Lister)
	if !ok {
		s.metrics.Swept("orphans", removed)
		return removed, nil
	}

	objects, err := lister.List(ctx)
	if err != nil {
		return removed, storageErr(err)
	}

	for _, obj := range objects {
		if !strings.HasSuffix(obj.Ref, blobSuffix) || obj.ModTime.After(cutoff) {
			continue
		}

		t, err := s.store.Get(ctx, strings.TrimSuffix(obj.Ref, blobSuffix))
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return removed, err
		case !t.Used:
			continue
		}

		if err := s.blobs.Delete(ctx, obj.Ref); err != nil {
			return removed, storageErr(err)
		}
		removed++
	}
	s.metrics.Swept("orphans", removed)
	return removed, nil
}

func validToken(token string) bool {
	if len(token) != 32 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
