package file

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerKeyPrefix = "blob/"
	badgerHeaderLen = 8 // unix nanoseconds of the write, big endian
)

// BadgerStorage keeps blobs in an embedded Badger database. Each value is
// prefixed with its write time so List can report ModTime.
type BadgerStorage struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

// BadgerOption configures NewBadgerStorage.
type BadgerOption func(*badgerOptions)

type badgerOptions struct {
	inMemory bool
	ttl      time.Duration
	logger   *slog.Logger
}

// WithBadgerInMemory keeps the database in memory only. Used in tests.
func WithBadgerInMemory() BadgerOption {
	return func(o *badgerOptions) { o.inMemory = true }
}

// WithBadgerTTL makes every entry expire after ttl, so blobs orphaned by a
// failed record insert disappear even if nothing deletes them.
func WithBadgerTTL(ttl time.Duration) BadgerOption {
	return func(o *badgerOptions) { o.ttl = ttl }
}

// WithBadgerLogger routes badger's internal logs to l.
func WithBadgerLogger(l *slog.Logger) BadgerOption {
	return func(o *badgerOptions) { o.logger = l }
}

// NewBadgerStorage opens (or creates) the database in dir.
func NewBadgerStorage(dir string, opts ...BadgerOption) (*BadgerStorage, error) {
	o := &badgerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if dir == "" && !o.inMemory {
		return nil, ErrInvalidConfig
	}

	bopts := badger.DefaultOptions(dir)
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithLogger(nil)
	if o.logger != nil {
		bopts = bopts.WithLogger(badgerLogger{o.logger})
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDatabase, err)
	}
	return &BadgerStorage{db: db, ttl: o.ttl, now: time.Now}, nil
}

func (s *BadgerStorage) Put(ctx context.Context, ref string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validRef(ref) {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	value := make([]byte, badgerHeaderLen+len(data))
	binary.BigEndian.PutUint64(value, uint64(s.now().UnixNano()))
	copy(value[badgerHeaderLen:], data)

	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(badgerKey(ref), value)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return errors.Join(ErrFailedToWriteFile, err)
	}
	return nil
}

func (s *BadgerStorage) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validRef(ref) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(ref))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if len(value) < badgerHeaderLen {
			return fmt.Errorf("corrupt blob entry %q", ref)
		}
		data = value[badgerHeaderLen:]
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrFailedToReadFile, err)
	}
	return data, nil
}

func (s *BadgerStorage) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validRef(ref) {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(ref))
	}); err != nil {
		return errors.Join(ErrFailedToDeleteFile, err)
	}
	return nil
}

func (s *BadgerStorage) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	prefix := []byte(badgerKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			obj := Object{
				Ref:  string(item.Key()[len(prefix):]),
				Size: max(item.ValueSize()-badgerHeaderLen, 0),
			}
			if err := item.Value(func(v []byte) error {
				if len(v) >= badgerHeaderLen {
					obj.ModTime = time.Unix(0, int64(binary.BigEndian.Uint64(v[:badgerHeaderLen])))
				}
				return nil
			}); err != nil {
				return err
			}
			objects = append(objects, obj)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToReadDirectory, err)
	}
	return objects, nil
}

// RunGC reclaims value log space left by deleted blobs. It returns nil when
// there was nothing to rewrite.
func (s *BadgerStorage) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
		return err
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

func badgerKey(ref string) []byte {
	return []byte(badgerKeyPrefix + ref)
}

type badgerLogger struct{ log *slog.Logger }

func (l badgerLogger) Errorf(f string, v ...any)   { l.log.Error(fmt.Sprintf(f, v...)) }
func (l badgerLogger) Warningf(f string, v ...any) { l.log.Warn(fmt.Sprintf(f, v...)) }
func (l badgerLogger) Infof(f string, v ...any)    { l.log.Debug(fmt.Sprintf(f, v...)) }
func (l badgerLogger) Debugf(f string, v ...any)   { l.log.Debug(fmt.Sprintf(f, v...)) }
