package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/meetscribe/audio"
	"github.com/kbukum/meetscribe/calllog"
	"github.com/kbukum/meetscribe/credentials"
	"github.com/kbukum/meetscribe/database"
	"github.com/kbukum/meetscribe/diarization"
	"github.com/kbukum/meetscribe/llm"
	llmgemini "github.com/kbukum/meetscribe/llm/gemini"
	llmopenai "github.com/kbukum/meetscribe/llm/openai"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/observability"
	"github.com/kbukum/meetscribe/provider"
	"github.com/kbukum/meetscribe/quality"
	"github.com/kbukum/meetscribe/speaker"
	"github.com/kbukum/meetscribe/title"
	"github.com/kbukum/meetscribe/transcriber"
	"github.com/kbukum/meetscribe/transcription"
	"github.com/kbukum/meetscribe/transcription/assemblyai"
	"github.com/kbukum/meetscribe/transcription/deepgram"
	"github.com/kbukum/meetscribe/transcription/gemini"
	"github.com/kbukum/meetscribe/transcription/openai"
)

// app is the wired object graph.
type app struct {
	orchestrator *transcriber.Orchestrator
	registry     *transcription.Registry
	calls        calllog.Lister
	checks       []provider.Provider
	closers      []func(context.Context) error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// build wires the pipeline from cfg. Credentials come from creds.
func build(ctx context.Context, cfg *Config, creds credentials.Provider) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close(ctx)
		}
	}()
	log := logger.Get("meetscribe")

	shutdown, err := observability.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	a.closers = append(a.closers, shutdown)
	metrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	sinks := calllog.Multi{calllog.NewLogSink(logger.Get("calllog"))}
	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		store, err := calllog.NewStore(db)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, store)
		a.calls = store
		a.checks = append(a.checks, db)
	} else {
		mem := calllog.NewMemory(cfg.Pipeline.CallHistory)
		sinks = append(sinks, mem)
		a.calls = mem
	}

	ffmpeg := audio.NewFFmpeg(cfg.FFmpeg, nil)
	a.checks = append(a.checks, provider.NewFunc[struct{}, struct{}]("ffmpeg", nil).
		WithAvailability(func(context.Context) bool { return ffmpeg.Installed() }))

	a.registry, err = buildRegistry(cfg.Backends, creds, ffmpeg)
	if err != nil {
		return nil, err
	}

	primary, err := buildLLM(cfg.LLM.Primary, creds, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("llm.primary: %w", err)
	}
	fallback, err := buildLLM(cfg.LLM.Fallback, creds, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("llm.fallback: %w", err)
	}
	logged := func(c *tracedLLM, ct calllog.CallType) llm.Client {
		return calllog.WithCallLog(sinks, ct, c.endpoint)(c.client)
	}

	a.orchestrator, err = transcriber.New(transcriber.Deps{
		Registry:     a.registry,
		Preprocessor: audio.New(ffmpeg, cfg.Audio),
		Diarizer:     diarization.NewNormalizer(logged(primary, calllog.CallDiarization)),
		Validator:    quality.New(logged(primary, calllog.CallQuality)),
		Identifier: speaker.New(
			logged(primary, calllog.CallSpeakerID),
			logged(fallback, calllog.CallSpeakerID),
		),
		Titles:        title.New(logged(primary, calllog.CallTitle)),
		CallLog:       sinks,
		Metrics:       metrics,
		Logger:        logger.Get("transcriber"),
		MaxConcurrent: cfg.Pipeline.MaxConcurrent,
		MaxWait:       cfg.Pipeline.MaxWait,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func buildRegistry(cfg BackendsConfig, creds credentials.Provider, prober transcription.DurationProber) (*transcription.Registry, error) {
	cfg.AssemblyAI.APIKey = credentials.Get(creds, credentials.AssemblyAI)
	cfg.Deepgram.APIKey = credentials.Get(creds, credentials.Deepgram)
	cfg.OpenAI.APIKey = credentials.Get(creds, credentials.OpenAI)
	cfg.Gemini.APIKey = credentials.Get(creds, credentials.Gemini)

	aai, err := assemblyai.New(cfg.AssemblyAI)
	if err != nil {
		return nil, err
	}
	dg, err := deepgram.New(cfg.Deepgram)
	if err != nil {
		return nil, err
	}
	gm, err := gemini.New(cfg.Gemini, prober)
	if err != nil {
		return nil, err
	}
	return transcription.NewRegistry(aai, dg, openai.New(cfg.OpenAI, prober), gm), nil
}

// tracedLLM is an adapter wrapped with tracing, metrics and logging.
type tracedLLM struct {
	client   llm.Client
	endpoint string
}

// buildLLM creates an adapter for cfg. The key is looked up under the
// dialect's provider name.
func buildLLM(cfg llm.Config, creds credentials.Provider, log *logger.Logger, metrics *observability.Metrics) (*tracedLLM, error) {
	var dialect llm.Dialect
	switch cfg.Dialect {
	case "openai":
		dialect = llmopenai.Dialect{}
		cfg.APIKey = credentials.Get(creds, credentials.OpenAI)
	case "gemini":
		dialect = llmgemini.Dialect{}
		cfg.APIKey = credentials.Get(creds, credentials.Gemini)
	default:
		return nil, fmt.Errorf("unknown dialect %q", cfg.Dialect)
	}
	adapter, err := llm.New(dialect, cfg)
	if err != nil {
		return nil, err
	}
	client := provider.Chain(
		provider.WithTracing[llm.CompletionRequest, llm.CompletionResponse]("llm"),
		provider.WithMetrics[llm.CompletionRequest, llm.CompletionResponse](metrics),
		provider.WithLogging[llm.CompletionRequest, llm.CompletionResponse](log.WithComponent(cfg.Name)),
	)(adapter)
	return &tracedLLM{client: client, endpoint: adapter.Endpoint()}, nil
}
