package transcriber

import (
	"context"

	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/observability"
)

// Stage is a state of the pipeline.
type Stage string

const (
	StageValidatingInput     Stage = "validating-input"
	StagePreprocessing       Stage = "preprocessing"
	StageDispatching         Stage = "dispatching"
	StageDiarizing           Stage = "diarizing"
	StageGeneratingTitle     Stage = "title-generating"
	StageValidatingQuality   Stage = "validating-quality"
	StageIdentifyingSpeakers Stage = "identifying-speakers"
	StageComplete            Stage = "complete"
)

// stage runs fn inside a span named after st and records its duration.
func (o *Orchestrator) stage(ctx context.Context, st Stage, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "transcriber."+string(st))
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrStage, string(st))

	log := o.log.WithContext(ctx)
	log.Debug("stage started", logger.Fields(logger.FieldStage, st))
	start := o.now()
	err := fn(ctx)
	elapsed := o.now().Sub(start)
	o.deps.Metrics.RecordStage(ctx, string(st), elapsed)

	timing := logger.DurationFields("stage."+string(st), elapsed)
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Error("stage failed", timing, logger.Fields(logger.FieldStage, st, logger.FieldError, err.Error()))
		return err
	}
	log.Debug("stage finished", timing, logger.Fields(logger.FieldStage, st))
	return nil
}
