// Package openai implements the multipart-upload transcription backend on top
// of the OpenAI audio transcription endpoint. The reply is synchronous and
// carries no speaker labels; diarization is added afterwards by the
// diarization normalizer.
package openai

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/provider"
	"github.com/kbukum/meetscribe/resilience"
	"github.com/kbukum/meetscribe/transcription"
)

const (
	// ID is the backend identifier.
	ID = "openai"

	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = openai.Whisper1

	// MaxFileSize is the upload limit of the transcription endpoint.
	MaxFileSize = 25 * 1024 * 1024

	defaultTimeout = 10 * time.Minute
)

// DefaultPricing is USD per audio minute.
var DefaultPricing = map[string]transcription.MinuteRate{
	openai.Whisper1:          0.006,
	"gpt-4o-mini-transcribe": 0.003,
	"gpt-4o-transcribe":      0.006,
}

// Config configures the backend.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	APIKey  string        `yaml:"-" mapstructure:"api_key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxAttempts retries transient failures when above 1.
	MaxAttempts int                                 `yaml:"max_attempts" mapstructure:"max_attempts"`
	Pricing     map[string]transcription.MinuteRate `yaml:"pricing" mapstructure:"pricing"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Backend transcribes through the OpenAI audio API.
type Backend struct {
	cfg        Config
	client     *openai.Client
	prober     transcription.DurationProber
	resilience *provider.ResilienceState
	log        *logger.Logger
}

var _ transcription.Backend = (*Backend)(nil)

// New creates the backend. prober fills in the duration for models whose
// reply omits it.
func New(cfg Config, prober transcription.DurationProber) *Backend {
	cfg.ApplyDefaults()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	cb := resilience.DefaultCircuitBreakerConfig(ID)
	cb.IsFailure = isServerFailure
	rc := provider.ResilienceConfig{CircuitBreaker: &cb}
	if cfg.MaxAttempts > 1 {
		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = cfg.MaxAttempts
		retry.RetryIf = isServerFailure
		rc.Retry = &retry
	}

	return &Backend{
		cfg:        cfg,
		client:     openai.NewClientWithConfig(clientCfg),
		prober:     prober,
		resilience: provider.BuildResilience(rc),
		log:        logger.Get(ID),
	}
}

// Name returns the backend ID.
func (b *Backend) Name() string { return ID }

// IsAvailable reports whether an API key is configured.
func (b *Backend) IsAvailable(_ context.Context) bool { return b.cfg.APIKey != "" }

// Descriptor returns the static backend metadata.
func (b *Backend) Descriptor() transcription.Descriptor {
	return transcription.Descriptor{
		ID:          ID,
		DisplayName: "OpenAI",
		MaxFileSize: MaxFileSize,
		Priority:    3,
	}
}

// Dispatch uploads the file and maps the reply. whisper-1 is asked for
// verbose_json so that time-aligned segments come back; newer models only
// support plain json.
func (b *Backend) Dispatch(ctx context.Context, path string, opts transcription.Options) (*transcription.CallResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, goerrors.FileNotFound(path)
	}

	model := opts.Model
	if model == "" {
		model = b.cfg.Model
	}
	format := openai.AudioResponseFormatJSON
	if model == openai.Whisper1 {
		format = openai.AudioResponseFormatVerboseJSON
	}

	req := openai.AudioRequest{
		Model:    model,
		FilePath: path,
		Prompt:   opts.VocabularyHint(),
		Language: opts.Language,
		Format:   format,
	}
	resp, err := provider.ExecuteWithResilience(ctx, b.resilience, func() (openai.AudioResponse, error) {
		r, err := b.client.CreateTranscription(ctx, req)
		return r, classify(err)
	})
	if err != nil {
		return nil, err
	}

	duration := resp.Duration
	if duration <= 0 && b.prober != nil {
		if duration, err = b.prober.Duration(ctx, path); err != nil {
			b.log.Warn("could not probe audio duration", logger.ErrorFields("probe", err))
		}
	}

	segs := make([]transcription.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, transcription.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	if len(segs) == 0 && resp.Text != "" {
		segs = append(segs, transcription.Segment{Start: 0, End: duration, Text: strings.TrimSpace(resp.Text)})
	}

	language := resp.Language
	if language == "" {
		language = opts.Language
	}
	return &transcription.CallResult{
		Text:      strings.TrimSpace(resp.Text),
		Duration:  duration,
		CostCents: b.rate(model).CostCents(duration),
		Model:     model,
		Segments:  segs,
		Language:  language,
		Endpoint:  b.cfg.BaseURL + "/audio/transcriptions",
	}, nil
}

func (b *Backend) rate(model string) transcription.MinuteRate {
	if r, ok := b.cfg.Pricing[model]; ok {
		return r
	}
	if r, ok := DefaultPricing[model]; ok {
		return r
	}
	return DefaultPricing[DefaultModel]
}

// classify maps go-openai errors onto the taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return statusError(reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode), err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return goerrors.Timeout(ID + " request").WithCause(err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return goerrors.Timeout(ID + " request").WithCause(err)
		}
		return goerrors.NetworkError(err)
	}
	return transcription.ClassifyError(ID, err)
}

func statusError(status int, message string, cause error) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return goerrors.InvalidCredentials(ID).WithCause(cause)
	}
	return goerrors.BackendError(status, message).WithCause(cause)
}

// isServerFailure counts failures that say something about the backend's
// health rather than about the request.
func isServerFailure(err error) bool {
	appErr, ok := goerrors.AsAppError(err)
	if !ok {
		return true
	}
	switch appErr.Code {
	case goerrors.ErrCodeNetwork, goerrors.ErrCodeTimeout:
		return true
	case goerrors.ErrCodeBackend:
		status, _ := appErr.Details["status"].(int)
		return status >= 500 || status == http.StatusTooManyRequests
	}
	return false
}
