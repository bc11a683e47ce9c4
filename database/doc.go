// Package database opens the embedded SQLite store through GORM.
//
// Connections are retried with backoff, pooled, and logged through the
// project logger; slow and failing queries are reported at warn and error
// level. Each package owns its schema as embedded golang-migrate SQL files
// and applies them with Migrate under its own version table.
//
//	db, err := database.Open(ctx, database.Config{Enabled: true, DSN: "meetscribe.db"})
//	if err != nil { ... }
//	defer db.Close()
//	err = db.Migrate(migrationsFS, "migrations", "calllog_schema")
package database
