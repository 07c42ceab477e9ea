package transfer_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/blackfile/pkg/logger"
	"github.com/dmitrymomot/blackfile/pkg/mongo"
	"github.com/dmitrymomot/blackfile/pkg/pg"
	"github.com/dmitrymomot/blackfile/pkg/secrets"
	"github.com/dmitrymomot/blackfile/svc/transfer"
)

func newRecord(t *testing.T, expiresAt time.Time) *transfer.Transfer {
	t.Helper()
	token, err := secrets.GenerateToken()
	require.NoError(t, err)
	return &transfer.Transfer{
		Token:          token,
		RecipientEmail: "r@example.com",
		OTPHash:        "hash",
		OTPSalt:        "salt",
		KeyID:          "key-id",
		Filename:       "a.txt",
		BlobRef:        transfer.BlobRefFor(token),
		Nonce:          []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		ContentHash:    "abc",
		Size:           42,
		CreatedAt:      epoch,
		ExpiresAt:      expiresAt,
	}
}

func assertSameTime(t *testing.T, want time.Time, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

// runStoreContract checks the behavior every Store must share. newStore must
// return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) transfer.Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(t, epoch.Add(10*time.Minute))
		require.NoError(t, s.Create(ctx, rec))

		got, err := s.Get(ctx, rec.Token)
		require.NoError(t, err)
		assert.Equal(t, rec.Token, got.Token)
		assert.Equal(t, rec.RecipientEmail, got.RecipientEmail)
		assert.Equal(t, rec.OTPHash, got.OTPHash)
		assert.Equal(t, rec.OTPSalt, got.OTPSalt)
		assert.Equal(t, rec.KeyID, got.KeyID)
		assert.Equal(t, rec.Filename, got.Filename)
		assert.Equal(t, rec.BlobRef, got.BlobRef)
		assert.Equal(t, rec.Nonce, got.Nonce)
		assert.Equal(t, rec.ContentHash, got.ContentHash)
		assert.Equal(t, rec.Size, got.Size)
		assertSameTime(t, rec.CreatedAt, got.CreatedAt)
		assertSameTime(t, rec.ExpiresAt, got.ExpiresAt)
		assert.False(t, got.Used)
		assert.Zero(t, got.Attempts)
		assert.Nil(t, got.LockedUntil)
		assert.Nil(t, got.DownloadedAt)
	})

	t.Run("duplicate token", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(t, epoch.Add(time.Minute))
		require.NoError(t, s.Create(ctx, rec))
		assert.ErrorIs(t, s.Create(ctx, rec), transfer.ErrDuplicateToken)
	})

	t.Run("missing record", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "00000000000000000000000000000000")
		assert.ErrorIs(t, err, transfer.ErrNotFound)
		_, err = s.ReserveAttempt(ctx, "00000000000000000000000000000000", 3, epoch, epoch)
		assert.ErrorIs(t, err, transfer.ErrAttemptRefused)
		assert.NoError(t, s.ReleaseAttempt(ctx, "00000000000000000000000000000000"))
		assert.ErrorIs(t, s.MarkUsed(ctx, "00000000000000000000000000000000", "", epoch), transfer.ErrAlreadyConsumed)
		assert.NoError(t, s.Delete(ctx, "00000000000000000000000000000000"))
	})

	t.Run("reserve attempt locks at max", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(t, epoch.Add(time.Hour))
		require.NoError(t, s.Create(ctx, rec))
		lockUntil := epoch.Add(10 * time.Minute)

		got, err := s.ReserveAttempt(ctx, rec.Token, 3, epoch, lockUntil)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Attempts)
		assert.Nil(t, got.LockedUntil)

		got, err = s.ReserveAttempt(ctx, rec.Token, 3, epoch, lockUntil)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)
		assert.Nil(t, got.LockedUntil)

		got, err = s.ReserveAttempt(ctx, rec.Token, 3, epoch, lockUntil)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Attempts)
		require.NotNil(t, got.LockedUntil)
		assertSameTime(t, lockUntil, *got.LockedUntil)

		_, err = s.ReserveAttempt(ctx, rec.Token, 3, lockUntil.Add(-time.Second), lockUntil)
		assert.ErrorIs(t, err, transfer.ErrAttemptRefused, "locked record")

		relock := lockUntil.Add(10 * time.Minute)
		got, err = s.ReserveAttempt(ctx, rec.Token, 3, lockUntil, relock)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Attempts)
		assertSameTime(t, relock, *got.LockedUntil)
	})

	t.Run("reserve attempt refuses used and expired records", func(t *testing.T) {
		s := newStore(t)
		used := newRecord(t, epoch.Add(time.Hour))
		require.NoError(t, s.Create(ctx, used))
		require.NoError(t, s.MarkUsed(ctx, used.Token, "192.0.2.1", epoch))
		_, err := s.ReserveAttempt(ctx, used.Token, 3, epoch, epoch.Add(time.Minute))
		assert.ErrorIs(t, err, transfer.ErrAttemptRefused)

		expired := newRecord(t, epoch.Add(time.Minute))
		require.NoError(t, s.Create(ctx, expired))
		_, err = s.ReserveAttempt(ctx, expired.Token, 3, epoch.Add(time.Minute), epoch.Add(time.Hour))
		assert.ErrorIs(t, err, transfer.ErrAttemptRefused)
	})

	t.Run("release attempt unlocks", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(t, epoch.Add(time.Hour))
		require.NoError(t, s.Create(ctx, rec))

		for range 3 {
			_, err := s.ReserveAttempt(ctx, rec.Token, 3, epoch, epoch.Add(time.Minute))
			require.NoError(t, err)
		}
		require.NoError(t, s.ReleaseAttempt(ctx, rec.Token))

		got, err := s.Get(ctx, rec.Token)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)
		assert.Nil(t, got.LockedUntil)

		fresh := newRecord(t, epoch.Add(time.Hour))
		require.NoError(t, s.Create(ctx, fresh))
		require.NoError(t, s.ReleaseAttempt(ctx, fresh.Token))
		got, err = s.Get(ctx, fresh.Token)
		require.NoError(t, err)
		assert.Zero(t, got.Attempts)
	})

	t.Run("concurrent reservations never exceed the budget", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(t, epoch.Add(time.Hour))
		require.NoError(t, s.Create(ctx, rec))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			granted int
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ReserveAttempt(ctx, rec.Token, 3, epoch, epoch.Add(time.Minute))
				if err == nil {
					mu.Lock()
					granted++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, transfer.ErrAttemptRefused)
			}()
		}
		wg.Wait()
		assert.Equal(t, 3, granted)

		got, err := s.Get(ctx, rec.Token)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Attempts)
	})

	t.Run("mark used once", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(t, epoch.Add(time.Hour))
		require.NoError(t, s.Create(ctx, rec))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.MarkUsed(ctx, rec.Token, "192.0.2.1", epoch.Add(time.Minute))
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, transfer.ErrAlreadyConsumed)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		got, err := s.Get(ctx, rec.Token)
		require.NoError(t, err)
		assert.True(t, got.Used)
		assert.Equal(t, "192.0.2.1", got.DownloadedFrom)
		require.NotNil(t, got.DownloadedAt)
		assertSameTime(t, epoch.Add(time.Minute), *got.DownloadedAt)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(t, epoch.Add(time.Hour))
		require.NoError(t, s.Create(ctx, rec))
		require.NoError(t, s.Delete(ctx, rec.Token))
		_, err := s.Get(ctx, rec.Token)
		assert.ErrorIs(t, err, transfer.ErrNotFound)
	})

	t.Run("list expired", func(t *testing.T) {
		s := newStore(t)
		late := newRecord(t, epoch.Add(3*time.Minute))
		early := newRecord(t, epoch.Add(time.Minute))
		exact := newRecord(t, epoch.Add(5*time.Minute))
		live := newRecord(t, epoch.Add(time.Hour))
		for _, r := range []*transfer.Transfer{late, early, exact, live} {
			require.NoError(t, s.Create(ctx, r))
		}

		now := epoch.Add(5 * time.Minute)
		got, err := s.ListExpired(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, early.Token, got[0].Token)
		assert.Equal(t, late.Token, got[1].Token)
		assert.Equal(t, exact.Token, got[2].Token)

		got, err = s.ListExpired(ctx, now, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(*testing.T) transfer.Store { return transfer.NewMemoryStore() })
}

func integration(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("set TEST_INTEGRATION to run store integration tests")
	}
}

func TestPostgresStore(t *testing.T) {
	integration(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("blackfile_test"),
		postgres.WithUsername("blackfile"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := pg.Config{
		ConnectionString: dsn,
		MaxOpenConns:     5,
		MaxIdleConns:     1,
		RetryAttempts:    3,
		RetryInterval:    time.Second,
		MigrationsPath:   "migrations",
		MigrationsTable:  "schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, transfer.Migrations, logger.Nop()))
	require.NoError(t, pg.Healthcheck(pool)(ctx))

	runStoreContract(t, func(t *testing.T) transfer.Store {
		_, err := pool.Exec(ctx, "TRUNCATE transfers")
		require.NoError(t, err)
		return transfer.NewPostgresStore(pool)
	})
}

func TestMongoStore(t *testing.T) {
	integration(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "mongodb")
	require.NoError(t, err)

	cfg := mongo.Config{
		ConnectionURL:  endpoint,
		Database:       "blackfile_test",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		RetryAttempts:  3,
		RetryInterval:  time.Second,
	}
	db, err := mongo.NewWithDatabase(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(ctx) })
	require.NoError(t, mongo.Healthcheck(db.Client())(ctx))

	runStoreContract(t, func(t *testing.T) transfer.Store {
		require.NoError(t, db.Collection(transfer.CollectionName).Drop(ctx))
		s := transfer.NewMongoStore(db)
		require.NoError(t, s.EnsureIndexes(ctx))
		return s
	})
}
