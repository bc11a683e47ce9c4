package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/meetscribe/errors"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Body string
}

var noteMigrations = fstest.MapFS{
	"migrations/0001_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT NOT NULL);")},
	"migrations/0001_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
	"migrations/0002_tags.up.sql":    {Data: []byte("ALTER TABLE notes ADD COLUMN tag TEXT NOT NULL DEFAULT '';")},
	"migrations/0002_tags.down.sql":  {Data: []byte("ALTER TABLE notes DROP COLUMN tag;")},
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.DSN != "meetscribe.db" || cfg.MaxOpenConns != 1 || cfg.MaxRetries != 3 ||
		cfg.SlowQueryThreshold != 200*time.Millisecond || cfg.LogLevel != "warn" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled skips checks", Config{}, false},
		{"valid", Config{Enabled: true, DSN: MemoryDSN, MaxOpenConns: 2, MaxIdleConns: 1, LogLevel: "info"}, false},
		{"missing dsn", Config{Enabled: true, MaxOpenConns: 1, MaxIdleConns: 1, LogLevel: "warn"}, true},
		{"idle above open", Config{Enabled: true, DSN: "x.db", MaxOpenConns: 1, MaxIdleConns: 3, LogLevel: "warn"}, true},
		{"bad log level", Config{Enabled: true, DSN: "x.db", MaxOpenConns: 1, MaxIdleConns: 1, LogLevel: "loud"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(ctx, Config{Enabled: true, DSN: path})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := db.Migrate(noteMigrations, "migrations", "notes_schema"); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if err := db.WithContext(ctx).Create(&note{Body: "hello"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if !db.IsAvailable(ctx) {
		t.Error("expected database to be available")
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if db.IsAvailable(ctx) {
		t.Error("closed database must not be available")
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}

	reopened, err := Open(ctx, Config{Enabled: true, DSN: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Migrate(noteMigrations, "migrations", "notes_schema"); err != nil {
		t.Fatalf("re-running applied migrations: %v", err)
	}
	var count int64
	reopened.WithContext(ctx).Model(&note{}).Count(&count)
	if count != 1 {
		t.Errorf("expected persisted row, got %d", count)
	}
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(context.Background(), Config{Enabled: true, DSN: MemoryDSN})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(noteMigrations, "migrations", "notes_schema"); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if err := db.WithContext(context.Background()).Create(&note{Body: "x"}).Error; err != nil {
		t.Fatalf("in-memory table must survive across statements: %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	db, err := Open(context.Background(), Config{Enabled: true, DSN: MemoryDSN})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	v, dirty, err := db.MigrationVersion(noteMigrations, "migrations", "notes_schema")
	if err != nil || v != 0 || dirty {
		t.Fatalf("before: v=%d dirty=%v err=%v", v, dirty, err)
	}
	if err := db.Migrate(noteMigrations, "migrations", "notes_schema"); err != nil {
		t.Fatal(err)
	}
	v, dirty, err = db.MigrationVersion(noteMigrations, "migrations", "notes_schema")
	if err != nil || v != 2 || dirty {
		t.Errorf("after: v=%d dirty=%v err=%v", v, dirty, err)
	}
}

func TestFromDatabase(t *testing.T) {
	if FromDatabase(nil, "call") != nil {
		t.Error("nil error must map to nil")
	}
	if err := FromDatabase(gorm.ErrRecordNotFound, "call"); err.Code != apperrors.ErrCodeNotFound {
		t.Errorf("got %s", err.Code)
	}
	busy := FromDatabase(errors.New("database is locked (5) (SQLITE_BUSY)"), "call")
	if busy.Code != apperrors.ErrCodeDatabaseError || !busy.Retryable {
		t.Errorf("unexpected %+v", busy)
	}
	other := FromDatabase(errors.New("no such table: calls"), "call")
	if other.Retryable {
		t.Error("schema errors are not retryable")
	}
}
