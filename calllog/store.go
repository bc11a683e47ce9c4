package calllog

import (
	"context"
	"embed"
	"time"

	"github.com/kbukum/meetscribe/database"
	"github.com/kbukum/meetscribe/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// schemaTable tracks the applied migrations of this package.
const schemaTable = "calllog_schema"

// Record is the persisted form of an Entry. The schema lives in migrations/.
type Record struct {
	ID           string `gorm:"primaryKey"`
	CallType     string
	Provider     string
	Model        string
	Endpoint     string
	StartedAt    time.Time
	DurationMs   int64
	Success      bool
	InputBytes   int64
	InputTokens  int
	OutputTokens int
	CostCents    int
	Error        string
}

// TableName sets the table name.
func (Record) TableName() string { return "api_calls" }

func toRecord(e Entry) Record {
	return Record{
		ID: e.ID, CallType: string(e.CallType), Provider: e.Provider, Model: e.Model,
		Endpoint: e.Endpoint, StartedAt: e.StartedAt, DurationMs: e.DurationMs,
		Success: e.Success, InputBytes: e.InputBytes, InputTokens: e.InputTokens,
		OutputTokens: e.OutputTokens, CostCents: e.CostCents, Error: e.Error,
	}
}

func (r Record) entry() Entry {
	return Entry{
		ID: r.ID, CallType: CallType(r.CallType), Provider: r.Provider, Model: r.Model,
		Endpoint: r.Endpoint, StartedAt: r.StartedAt, DurationMs: r.DurationMs,
		Success: r.Success, InputBytes: r.InputBytes, InputTokens: r.InputTokens,
		OutputTokens: r.OutputTokens, CostCents: r.CostCents, Error: r.Error,
	}
}

// Store persists entries in the database.
type Store struct {
	db  *database.DB
	log *logger.Logger
}

// NewStore creates a store over db and applies pending migrations.
func NewStore(db *database.DB) (*Store, error) {
	if err := db.Migrate(migrations, "migrations", schemaTable); err != nil {
		return nil, err
	}
	return &Store{db: db, log: logger.Get("calllog")}, nil
}

// Record implements Sink. Write failures are logged, never returned.
func (s *Store) Record(ctx context.Context, e Entry) {
	e.Stamp()
	rec := toRecord(e)
	// A cancelled request still gets its calls recorded.
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(&rec).Error; err != nil {
		s.log.WithContext(ctx).Error("failed to persist call log entry",
			logger.Fields("call_id", e.ID, logger.FieldError, database.FromDatabase(err, "api_call").Error()))
	}
}

// List implements Lister.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []Record
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, database.FromDatabase(err, "api_call")
	}
	out := make([]Entry, len(recs))
	for i, r := range recs {
		out[i] = r.entry()
	}
	return out, nil
}

// TotalCents sums the recorded cost since a point in time.
func (s *Store) TotalCents(ctx context.Context, since time.Time) (int, error) {
	var total int
	err := s.db.WithContext(ctx).Model(&Record{}).
		Where("started_at >= ?", since).
		Select("COALESCE(SUM(cost_cents), 0)").Scan(&total).Error
	if err != nil {
		return 0, database.FromDatabase(err, "api_call")
	}
	return total, nil
}
