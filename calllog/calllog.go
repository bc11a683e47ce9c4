// Package calllog records every outbound API call made by the pipeline.
//
// Each transcription dispatch and each auxiliary model call is reported as
// an Entry: what was called, for how long, whether it worked, and what it
// cost. Recording is a fire-and-forget side effect; a Sink never returns an
// error to the pipeline and must be safe for concurrent use.
package calllog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CallType names the pipeline stage that made a call.
type CallType string

const (
	CallTranscription CallType = "transcription"
	CallPreprocess    CallType = "preprocess"
	CallDiarization   CallType = "diarization"
	CallQuality       CallType = "quality_validation"
	CallSpeakerID     CallType = "speaker_identification"
	CallTitle         CallType = "title_generation"
)

// Entry is one recorded call.
type Entry struct {
	ID           string    `json:"id"`
	CallType     CallType  `json:"call_type"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model,omitempty"`
	Endpoint     string    `json:"endpoint,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	InputBytes   int64     `json:"input_bytes,omitempty"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	CostCents    int       `json:"cost_cents"`
	Error        string    `json:"error,omitempty"`
}

// Stamp fills in a missing ID and start time.
func (e *Entry) Stamp() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now().UTC()
	}
}

// Sink receives call entries.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// Lister returns the most recent entries, newest first.
type Lister interface {
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Nop discards entries.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, Entry) {}

// Multi fans entries out to several sinks in order.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(ctx context.Context, e Entry) {
	e.Stamp()
	for _, s := range m {
		if s != nil {
			s.Record(ctx, e)
		}
	}
}

// Memory keeps the last entries in memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewMemory keeps at most max entries; max <= 0 keeps everything.
func NewMemory(max int) *Memory {
	return &Memory{max: max}
}

// Record implements Sink.
func (m *Memory) Record(_ context.Context, e Entry) {
	e.Stamp()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = slices.Delete(m.entries, 0, len(m.entries)-m.max)
	}
}

// List implements Lister.
func (m *Memory) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Entries returns a copy of everything recorded, oldest first.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// TotalCents sums the cost of all recorded entries.
func (m *Memory) TotalCents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, e := range m.entries {
		total += e.CostCents
	}
	return total
}
