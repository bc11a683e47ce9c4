// Package transcriber is the pipeline entry point.
//
// One Transcribe call walks the stages
//
//	validating-input → preprocessing → dispatching → (diarizing)
//	  → (title-generating, validating-quality, identifying-speakers) → complete
//
// Input, preprocessing and dispatch failures abort the request with a typed
// error. Diarization and the three enrichments never fail a request; each
// degrades to "feature absent". The enrichments run concurrently and their
// costs are summed in a fixed order once all of them have finished.
package transcriber

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/meetscribe/audio"
	"github.com/kbukum/meetscribe/calllog"
	"github.com/kbukum/meetscribe/diarization"
	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/observability"
	"github.com/kbukum/meetscribe/provider"
	"github.com/kbukum/meetscribe/speaker"
	"github.com/kbukum/meetscribe/title"
	"github.com/kbukum/meetscribe/transcription"
)

// Preprocessor prepares the audio file for the selected backend.
type Preprocessor interface {
	Prepare(ctx context.Context, path string, desc transcription.Descriptor, opts transcription.Options) (*audio.Outcome, error)
}

// QualityValidator judges transcript quality.
type QualityValidator interface {
	Validate(ctx context.Context, text string) *transcription.QualityResult
}

// SpeakerIdentifier infers speaker identities.
type SpeakerIdentifier interface {
	Identify(ctx context.Context, in speaker.Input) *speaker.Result
}

// TitleGenerator titles a transcript.
type TitleGenerator interface {
	Generate(ctx context.Context, text string) title.Result
}

// Deps are the collaborators of an Orchestrator. Registry and Preprocessor
// are required; the rest are optional and their stage is skipped when nil.
type Deps struct {
	Registry     *transcription.Registry
	Preprocessor Preprocessor
	Diarizer     diarization.Provider
	Validator    QualityValidator
	Identifier   SpeakerIdentifier
	Titles       TitleGenerator
	CallLog      calllog.Sink
	Metrics      *observability.Metrics
	Logger       *logger.Logger

	// MaxConcurrent bounds simultaneous Transcribe calls; zero is unbounded.
	MaxConcurrent int
	// MaxWait is how long a call waits for a slot before failing.
	MaxWait time.Duration
}

// Orchestrator runs the transcription pipeline. It is safe for concurrent
// use; each call owns its files and state.
type Orchestrator struct {
	deps  Deps
	log   *logger.Logger
	guard *provider.ResilienceState
	now   func() time.Time
}

// New creates an orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("transcriber: registry is required")
	}
	if deps.Preprocessor == nil {
		return nil, fmt.Errorf("transcriber: preprocessor is required")
	}
	if deps.CallLog == nil {
		deps.CallLog = calllog.Nop{}
	}
	log := deps.Logger
	if log == nil {
		log = logger.Get("transcriber")
	}
	return &Orchestrator{
		deps: deps,
		log:  log,
		guard: provider.BuildResilience(provider.ResilienceConfig{
			MaxConcurrent: deps.MaxConcurrent,
			MaxWait:       deps.MaxWait,
		}),
		now: time.Now,
	}, nil
}

// Backends returns the registered backend descriptors in priority order.
func (o *Orchestrator) Backends() []transcription.Descriptor {
	return o.deps.Registry.Descriptors()
}

// Transcribe runs the pipeline for req and returns exactly one result or
// one typed error.
func (o *Orchestrator) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	return provider.ExecuteWithResilience(ctx, o.guard, func() (*transcription.Result, error) {
		return o.transcribe(ctx, req)
	})
}

// run is the mutable state of one invocation.
type run struct {
	req      transcription.Request
	backend  transcription.Backend
	desc     transcription.Descriptor
	prepared *audio.Outcome
	call     *transcription.CallResult
	segments []transcription.Segment

	diarizeCost int
	title       title.Result
	quality     *transcription.QualityResult
	speakers    *speaker.Result
}

func (o *Orchestrator) transcribe(ctx context.Context, req transcription.Request) (res *transcription.Result, err error) {
	start := o.now()
	ctx, span := observability.StartSpan(ctx, "transcriber.Transcribe")
	defer span.End()
	if id := logger.RequestIDFromContext(ctx); id != "" {
		observability.SetSpanAttribute(ctx, observability.AttrRequestID, id)
	}

	r := &run{req: req}
	defer func() {
		if cerr := r.prepared.Cleanup(); cerr != nil {
			o.log.WithContext(ctx).Warn("temporary file cleanup failed", logger.ErrorFields("cleanup", cerr))
		}
		status := "ok"
		if err != nil {
			status = "error"
			observability.SetSpanError(ctx, err)
			o.deps.Metrics.RecordError(ctx, string(errorCode(err)), "transcriber")
		}
		o.deps.Metrics.RecordTranscription(ctx, r.desc.ID, status)
	}()

	if err := o.stage(ctx, StageValidatingInput, func(ctx context.Context) error { return o.validate(ctx, r) }); err != nil {
		return nil, err
	}
	if err := o.stage(ctx, StagePreprocessing, func(ctx context.Context) error { return o.preprocess(ctx, r) }); err != nil {
		return nil, err
	}
	if err := o.stage(ctx, StageDispatching, func(ctx context.Context) error { return o.dispatch(ctx, r) }); err != nil {
		return nil, err
	}
	if o.shouldDiarize(ctx, r) {
		// Not fatal: the stage is marked failed and the unlabeled segments
		// from dispatch are kept.
		if err := o.stage(ctx, StageDiarizing, func(ctx context.Context) error { return o.diarize(ctx, r) }); err != nil {
			o.log.WithContext(ctx).Warn("keeping unlabeled segments", logger.Fields(logger.FieldBackend, r.desc.ID))
		}
	}
	o.enrich(ctx, r)

	res = o.assemble(r, o.now().Sub(start))
	observability.SetSpanAttribute(ctx, observability.AttrCostCents, res.CostCents)
	o.log.WithContext(ctx).Info("transcription complete", logger.Fields(
		logger.FieldStage, StageComplete,
		logger.FieldBackend, res.Backend,
		logger.FieldModel, res.Model,
		logger.FieldCost, res.CostCents,
		logger.FieldDuration, res.ProcessingTime.Milliseconds(),
		"segments", len(res.Segments),
		"speakers", res.SpeakerCount,
	))
	return res, nil
}

func (o *Orchestrator) validate(ctx context.Context, r *run) error {
	if r.req.AudioPath == "" {
		return goerrors.FileNotFound("")
	}
	if err := r.req.Validate(); err != nil {
		return err
	}
	if _, err := os.Stat(r.req.AudioPath); err != nil {
		return goerrors.FileNotFound(r.req.AudioPath)
	}
	backend, err := o.deps.Registry.Select(ctx, r.req.Options.Backend)
	if err != nil {
		return err
	}
	r.backend, r.desc = backend, backend.Descriptor()
	if pref := r.req.Options.Backend; pref != "" && pref != r.desc.ID {
		o.log.WithContext(ctx).Warn("preferred backend unavailable, falling back", logger.Fields(
			"preferred", pref, logger.FieldBackend, r.desc.ID))
	}
	observability.SetSpanAttribute(ctx, observability.AttrBackend, r.desc.ID)
	return nil
}

func (o *Orchestrator) preprocess(ctx context.Context, r *run) error {
	start := o.now()
	out, err := o.deps.Preprocessor.Prepare(ctx, r.req.AudioPath, r.desc, r.req.Options)
	if err != nil {
		o.deps.CallLog.Record(ctx, calllog.Entry{
			CallType:   calllog.CallPreprocess,
			Provider:   r.desc.ID,
			StartedAt:  start.UTC(),
			DurationMs: o.now().Sub(start).Milliseconds(),
			Error:      err.Error(),
		})
		return err
	}
	r.prepared = out
	observability.SetSpanAttribute(ctx, observability.AttrAudioBytes, out.SizeBytes)
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, r *run) error {
	start := o.now()
	call, err := r.backend.Dispatch(ctx, r.prepared.Path, r.req.Options)
	elapsed := o.now().Sub(start)
	if err != nil {
		err = transcription.ClassifyError(r.desc.ID, err)
	}

	entry := calllog.Entry{
		CallType:   calllog.CallTranscription,
		Provider:   r.desc.ID,
		Model:      r.req.Options.Model,
		StartedAt:  start.UTC(),
		DurationMs: elapsed.Milliseconds(),
		Success:    err == nil,
		InputBytes: r.prepared.SizeBytes,
	}
	status := "ok"
	if err != nil {
		status = "error"
		entry.Error = err.Error()
	} else {
		entry.Model = call.Model
		entry.Endpoint = call.Endpoint
		entry.InputTokens = call.InputTokens
		entry.OutputTokens = call.OutputTokens
		entry.CostCents = call.CostCents
		o.deps.Metrics.RecordCost(ctx, r.desc.ID, string(calllog.CallTranscription), call.CostCents)
	}
	o.deps.CallLog.Record(ctx, entry)
	o.deps.Metrics.RecordOperation(ctx, r.desc.ID, "dispatch", status, elapsed)
	if err != nil {
		return err
	}

	r.call = call
	r.segments = call.Segments
	if len(r.segments) == 0 && call.Text != "" {
		r.segments = []transcription.Segment{{Start: 0, End: call.Duration, Text: call.Text}}
	}
	observability.SetSpanAttribute(ctx, observability.AttrModel, call.Model)
	return nil
}

// shouldDiarize is true when labels were requested but the backend returned
// none. The segments decide, not the descriptor: a backend that advertises
// native diarization can still come back unlabeled.
func (o *Orchestrator) shouldDiarize(ctx context.Context, r *run) bool {
	if !r.req.Options.Diarize || transcription.HasSpeakerLabels(r.segments) || r.call.Text == "" {
		return false
	}
	if r.desc.NativeDiarization {
		o.log.WithContext(ctx).Warn("backend returned no speaker labels", logger.Fields(logger.FieldBackend, r.desc.ID))
	}
	return o.deps.Diarizer != nil && o.deps.Diarizer.IsAvailable(ctx)
}

func (o *Orchestrator) diarize(ctx context.Context, r *run) error {
	resp, err := o.deps.Diarizer.Diarize(ctx, diarization.Request{
		Transcript: r.call.Text,
		Duration:   r.call.Duration,
		Language:   r.call.Language,
	})
	if resp != nil {
		r.diarizeCost = resp.CostCents
	}
	if err != nil {
		return err
	}
	r.segments = resp.Segments
	return nil
}

// enrich runs the requested enrichments concurrently and waits for all of
// them. Each goroutine writes only its own field of r.
func (o *Orchestrator) enrich(ctx context.Context, r *run) {
	opts := r.req.Options
	// Each service absorbs its own failures into a nil or fallback result,
	// so these closures never return an error and Wait is only a join.
	var g errgroup.Group
	launch := func(stage Stage, fn func(ctx context.Context)) {
		g.Go(func() error {
			return o.stage(ctx, stage, func(ctx context.Context) error { fn(ctx); return nil })
		})
	}

	if opts.GenerateTitle && o.deps.Titles != nil {
		launch(StageGeneratingTitle, func(ctx context.Context) {
			r.title = o.deps.Titles.Generate(ctx, r.call.Text)
		})
	}
	if opts.ValidateQuality && o.deps.Validator != nil {
		launch(StageValidatingQuality, func(ctx context.Context) {
			r.quality = o.deps.Validator.Validate(ctx, r.call.Text)
		})
	}
	if opts.IdentifySpeakers && o.deps.Identifier != nil {
		launch(StageIdentifyingSpeakers, func(ctx context.Context) {
			r.speakers = o.deps.Identifier.Identify(ctx, speaker.Input{
				Segments:     r.segments,
				MeetingTitle: opts.MeetingTitle,
				Participants: opts.Participants,
			})
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) assemble(r *run, elapsed time.Duration) *transcription.Result {
	// Fixed order keeps the total independent of completion order.
	cost := r.call.CostCents + r.diarizeCost + r.title.CostCents
	if r.quality != nil {
		cost += r.quality.CostCents
	}
	var speakers []transcription.InferredSpeaker
	if r.speakers != nil {
		cost += r.speakers.CostCents
		speakers = r.speakers.Speakers
	}

	count := len(transcription.UniqueSpeakers(r.segments))
	if count == 0 {
		count = r.call.SpeakerCount
	}
	segments := r.segments
	if segments == nil {
		segments = []transcription.Segment{}
	}

	return &transcription.Result{
		Text:           r.call.Text,
		Duration:       r.call.Duration,
		CostCents:      cost,
		Segments:       segments,
		SpeakerCount:   count,
		Language:       r.call.Language,
		Title:          r.title.Title,
		Backend:        r.desc.ID,
		Model:          r.call.Model,
		ProcessingTime: elapsed,
		Compressed:     r.prepared.Compressed,
		SilenceCropped: r.prepared.SilenceCropped,
		Quality:        r.quality,
		Speakers:       speakers,
	}
}

func errorCode(err error) goerrors.ErrorCode {
	if appErr, ok := goerrors.AsAppError(err); ok {
		return appErr.Code
	}
	return goerrors.ErrCodeInternal
}
