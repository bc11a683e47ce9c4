package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kbukum/meetscribe/logger"
)

// Migrate applies the pending up-migrations found in dir of fsys. Files
// follow golang-migrate naming: 0001_name.up.sql and 0001_name.down.sql.
// Each owner keeps its own version table so packages migrate independently.
func (d *DB) Migrate(fsys fs.FS, dir, table string) error {
	m, err := d.migrator(fsys, dir, table)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database: migrate %s up: %w", table, err)
	}
	version, _, _ := m.Version()
	d.log.Debug("migrations applied", logger.Fields("table", table, "version", version))
	return nil
}

// MigrationVersion reports the applied version of table and whether the last
// migration failed halfway.
func (d *DB) MigrationVersion(fsys fs.FS, dir, table string) (uint, bool, error) {
	m, err := d.migrator(fsys, dir, table)
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// migrator builds a migrate instance over the shared pool. It must not be
// closed: that would close the pool.
func (d *DB) migrator(fsys fs.FS, dir, table string) (*migrate.Migrate, error) {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: table})
	if err != nil {
		return nil, fmt.Errorf("database: migration driver: %w", err)
	}
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("database: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("database: create migrator: %w", err)
	}
	return m, nil
}
