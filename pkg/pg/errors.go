package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyConnectionString   = errors.New("pg: empty connection string, set PG_CONN_URL")
	ErrInvalidConnectionString = errors.New("pg: invalid connection string")
	ErrConnect                 = errors.New("pg: connect failed")
	ErrUnhealthy               = errors.New("pg: ping failed")
	ErrMigrate                 = errors.New("pg: migration failed")
	ErrNoMigrationsPath        = errors.New("pg: migrations path is empty")
)

// SQLSTATE codes the stores branch on.
const uniqueViolation = "23505"

// IsNotFoundError reports whether a single-row query matched nothing.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
