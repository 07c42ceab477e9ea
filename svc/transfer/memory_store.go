package transfer

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It is used by tests and by
// single-instance deployments that accept losing transfers on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Transfer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Transfer)}
}

func (s *MemoryStore) Create(_ context.Context, t *Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[t.Token]; ok {
		return ErrDuplicateToken
	}
	s.records[t.Token] = clone(t)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.records[token]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

func (s *MemoryStore) ReserveAttempt(_ context.Context, token string, maxAttempts int, now, lockUntil time.Time) (*Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.records[token]
	if !ok || t.Used || t.IsExpired(now) || t.IsLocked(now) {
		return nil, ErrAttemptRefused
	}
	t.Attempts++
	if t.Attempts >= maxAttempts {
		until := lockUntil
		t.LockedUntil = &until
	}
	return clone(t), nil
}

func (s *MemoryStore) ReleaseAttempt(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.records[token]
	if !ok || t.Used {
		return nil
	}
	t.Attempts = max(t.Attempts-1, 0)
	t.LockedUntil = nil
	return nil
}

func (s *MemoryStore) MarkUsed(_ context.Context, token, origin string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.records[token]
	if !ok || t.Used {
		return ErrAlreadyConsumed
	}
	t.Used = true
	t.DownloadedFrom = origin
	t.DownloadedAt = &at
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	return nil
}

func (s *MemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]*Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Transfer
	for _, t := range s.records {
		if t.IsExpired(now) {
			out = append(out, clone(t))
		}
	}
	slices.SortFunc(out, func(a, b *Transfer) int { return a.ExpiresAt.Compare(b.ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func clone(t *Transfer) *Transfer {
	c := *t
	c.Nonce = slices.Clone(t.Nonce)
	if t.LockedUntil != nil {
		v := *t.LockedUntil
		c.LockedUntil = &v
	}
	if t.DownloadedAt != nil {
		v := *t.DownloadedAt
		c.DownloadedAt = &v
	}
	return &c
}
