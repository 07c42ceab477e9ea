// Package mongo connects to MongoDB with the v2 driver.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := transfer.NewMongoStore(db)
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
//
// Healthcheck pings the primary for the readiness probe.
package mongo
