package transfer

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/blackfile/pkg/pg"
)

// Migrations holds the goose migrations for PostgresStore, rooted at
// "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps transfers in the transfers table.
type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

const transferColumns = `token, recipient_email, otp_hash, otp_salt, key_id, filename, blob_ref,
	nonce, content_hash, size, created_at, expires_at, used, attempts, locked_until,
	downloaded_from, downloaded_at`

func (s *PostgresStore) Create(ctx context.Context, t *Transfer) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO transfers (`+transferColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		t.Token, t.RecipientEmail, t.OTPHash, t.OTPSalt, t.KeyID, t.Filename, t.BlobRef,
		t.Nonce, t.ContentHash, t.Size, t.CreatedAt, t.ExpiresAt, t.Used, t.Attempts, t.LockedUntil,
		t.DownloadedFrom, t.DownloadedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateToken
		}
		return storageErr(err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, token string) (*Transfer, error) {
	row := s.db.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE token = $1`, token)
	return scanTransfer(row)
}

func (s *PostgresStore) ReserveAttempt(ctx context.Context, token string, maxAttempts int, now, lockUntil time.Time) (*Transfer, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE transfers
		 SET attempts = attempts + 1,
		     locked_until = CASE WHEN attempts + 1 >= $2::int THEN $4::timestamptz ELSE locked_until END
		 WHERE token = $1
		   AND used = FALSE
		   AND expires_at > $3
		   AND (locked_until IS NULL OR locked_until <= $3)
		 RETURNING `+transferColumns,
		token, maxAttempts, now, lockUntil,
	)
	t, err := scanTransfer(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAttemptRefused
	}
	return t, err
}

func (s *PostgresStore) ReleaseAttempt(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE transfers SET attempts = GREATEST(attempts - 1, 0), locked_until = NULL
		 WHERE token = $1 AND used = FALSE`,
		token,
	)
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *PostgresStore) MarkUsed(ctx context.Context, token, origin string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE transfers SET used = TRUE, downloaded_from = $2, downloaded_at = $3
		 WHERE token = $1 AND used = FALSE`,
		token, origin, at,
	)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyConsumed
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM transfers WHERE token = $1`, token); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *PostgresStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*Transfer, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+transferColumns+` FROM transfers
		 WHERE expires_at <= $1
		 ORDER BY expires_at
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []*Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func scanTransfer(row pgx.Row) (*Transfer, error) {
	var t Transfer
	err := row.Scan(
		&t.Token, &t.RecipientEmail, &t.OTPHash, &t.OTPSalt, &t.KeyID, &t.Filename, &t.BlobRef,
		&t.Nonce, &t.ContentHash, &t.Size, &t.CreatedAt, &t.ExpiresAt, &t.Used, &t.Attempts, &t.LockedUntil,
		&t.DownloadedFrom, &t.DownloadedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	return &t, nil
}
