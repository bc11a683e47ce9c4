package calllog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kbukum/meetscribe/logger"
)

// LogSink writes each entry as one structured log line.
type LogSink struct {
	zl zerolog.Logger
}

// NewLogSink logs through log, or the "calllog" component logger when nil.
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.Get("calllog")
	}
	return &LogSink{zl: log.Zerolog()}
}

// Record implements Sink. Failed calls are logged at warn level.
func (s *LogSink) Record(ctx context.Context, e Entry) {
	e.Stamp()
	ev := s.zl.Info()
	if !e.Success {
		ev = s.zl.Warn().Str(logger.FieldError, e.Error)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		ev = ev.Str(logger.FieldRequestID, id)
	}
	ev.Str("call_id", e.ID).
		Str(logger.FieldCallType, string(e.CallType)).
		Str("provider", e.Provider).
		Str(logger.FieldModel, e.Model).
		Str("endpoint", e.Endpoint).
		Int64(logger.FieldDuration, e.DurationMs).
		Bool("success", e.Success).
		Int64("input_bytes", e.InputBytes).
		Int("input_tokens", e.InputTokens).
		Int("output_tokens", e.OutputTokens).
		Int(logger.FieldCost, e.CostCents).
		Msg("api call")
}
