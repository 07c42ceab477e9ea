package pg

import "time"

// Config selects the Postgres transfer store. It is loaded only when
// TRANSFER_STORE=postgres.
type Config struct {
	ConnectionString string `env:"PG_CONN_URL,required"`

	// Pool sizing. HealthCheckPeriod is pgxpool's background idle check and
	// is unrelated to the readiness probe.
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	// Connect waits RetryInterval*n before attempt n+1.
	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`

	// MigrationsPath is resolved inside the fs.FS handed to Migrate, not on disk.
	MigrationsPath  string `env:"PG_MIGRATIONS_PATH" envDefault:"migrations"`
	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"blackfile_migrations"`
}
