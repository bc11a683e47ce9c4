package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/provider"
	"github.com/kbukum/meetscribe/resilience"
)

// DB wraps a GORM database with project logging.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

var _ provider.Provider = (*DB)(nil)

// Open connects to the SQLite database in cfg.DSN, retrying with backoff
// until cfg.MaxRetries attempts fail or ctx is done.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	return OpenDialector(ctx, sqlite.Open(cfg.DSN), cfg)
}

// OpenDialector connects through an explicit dialector.
func OpenDialector(ctx context.Context, dialector gorm.Dialector, cfg Config) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get("database")
	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.Backoff = resilience.Backoff{Initial: time.Second, Max: 5 * time.Second, Factor: 2}
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("database connection attempt failed, retrying", logger.Fields(
			"attempt", attempt, logger.FieldError, err.Error(), "backoff", wait.String()))
	}

	db, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		db, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		if cfg.DSN != MemoryDSN {
			// An in-memory database lives only as long as its connection.
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect after %d attempts: %w", cfg.MaxRetries, err)
	}

	log.Info("database connection established", logger.Fields("dsn", cfg.DSN))
	return &DB{GormDB: db, log: log, cfg: cfg}, nil
}

// Name implements provider.Provider.
func (d *DB) Name() string { return "sqlite" }

// IsAvailable reports whether the connection is open and answers a ping.
func (d *DB) IsAvailable(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	return d.PingContext(ctx) == nil
}

// Close closes the connection pool. Safe to call multiple times.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Info("closing database connection")
	d.closed = true
	return sqlDB.Close()
}

// PingContext verifies the connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}
