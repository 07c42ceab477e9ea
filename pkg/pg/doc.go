// Package pg connects to PostgreSQL with pgx/v5 and applies goose migrations.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, transfer.Migrations, log); err != nil {
//		return err
//	}
//
// Migrate reads migration files from any fs.FS, so services embed their SQL
// next to the code that uses it. Healthcheck adapts the pool to the readiness
// probe in pkg/httpserver. IsNotFoundError and IsDuplicateKeyError classify
// driver errors without leaking pgx types into callers.
package pg
