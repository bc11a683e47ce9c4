// Package assemblyai implements the upload-then-poll transcription backend.
//
// A dispatch is three steps: the raw file is uploaded and yields a private
// URL, a transcription job is created for that URL, and the job status is
// polled with exponential backoff until it completes, fails or the overall
// poll timeout expires.
package assemblyai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/httpclient"
	"github.com/kbukum/meetscribe/httpclient/rest"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/resilience"
	"github.com/kbukum/meetscribe/transcription"
)

const (
	// ID is the backend identifier.
	ID = "assemblyai"

	DefaultBaseURL = "https://api.assemblyai.com"

	// MaxFileSize is the documented upload limit.
	MaxFileSize = 2200 * 1024 * 1024

	// DefaultRate is USD per audio minute.
	DefaultRate transcription.MinuteRate = 0.00283

	defaultModel       = "best"
	defaultTimeout     = 10 * time.Minute
	defaultPollInitial = 2 * time.Second
	defaultPollMax     = 10 * time.Second
	defaultPollTimeout = 10 * time.Minute
	pollFactor         = 1.5

	statusCompleted = "completed"
	statusError     = "error"
)

// Config configures the backend.
type Config struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"-" mapstructure:"api_key"`
	// SpeechModel is sent as speech_model when set. Model in the request
	// options overrides it.
	SpeechModel string `yaml:"speech_model" mapstructure:"speech_model"`
	// Timeout bounds each HTTP request; uploads of long files need minutes.
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PollInitial time.Duration `yaml:"poll_initial" mapstructure:"poll_initial"`
	PollMax     time.Duration `yaml:"poll_max" mapstructure:"poll_max"`
	// PollTimeout is the ceiling on waiting for one job.
	PollTimeout time.Duration            `yaml:"poll_timeout" mapstructure:"poll_timeout"`
	Rate        transcription.MinuteRate `yaml:"rate" mapstructure:"rate"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PollInitial <= 0 {
		c.PollInitial = defaultPollInitial
	}
	if c.PollMax <= 0 {
		c.PollMax = defaultPollMax
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaultPollTimeout
	}
	if c.Rate <= 0 {
		c.Rate = DefaultRate
	}
}

// Backend transcribes through the AssemblyAI v2 API.
type Backend struct {
	cfg  Config
	rest *rest.Client
	log  *logger.Logger
}

var _ transcription.Backend = (*Backend)(nil)

// New creates the backend.
func New(cfg Config) (*Backend, error) {
	cfg.ApplyDefaults()
	client, err := rest.New(httpclient.Config{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		Auth:           httpclient.APIKeyAuthHeader(cfg.APIKey, "Authorization"),
		Retry:          httpclient.DefaultRetryConfig(),
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ID),
	})
	if err != nil {
		return nil, fmt.Errorf("assemblyai: %w", err)
	}
	return &Backend{cfg: cfg, rest: client, log: logger.Get(ID)}, nil
}

// Name returns the backend ID.
func (b *Backend) Name() string { return ID }

// IsAvailable reports whether an API key is configured.
func (b *Backend) IsAvailable(_ context.Context) bool { return b.cfg.APIKey != "" }

// Descriptor returns the static backend metadata.
func (b *Backend) Descriptor() transcription.Descriptor {
	return transcription.Descriptor{
		ID:                ID,
		DisplayName:       "AssemblyAI",
		MaxFileSize:       MaxFileSize,
		Priority:          1,
		NativeDiarization: true,
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	LanguageCode      string `json:"language_code,omitempty"`
	LanguageDetection bool   `json:"language_detection,omitempty"`
	SpeechModel       string `json:"speech_model,omitempty"`
}

type utterance struct {
	Speaker string `json:"speaker"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Text    string `json:"text"`
}

type transcript struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Error         string      `json:"error"`
	Text          string      `json:"text"`
	AudioDuration float64     `json:"audio_duration"`
	LanguageCode  string      `json:"language_code"`
	Utterances    []utterance `json:"utterances"`
}

// Dispatch uploads the file, creates a job and waits for its result.
func (b *Backend) Dispatch(ctx context.Context, path string, opts transcription.Options) (*transcription.CallResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, goerrors.FileNotFound(path)
	}

	up, err := rest.Post[uploadResponse](ctx, b.rest, "/v2/upload",
		httpclient.File(path, "application/octet-stream"),
		rest.WithHeaders(map[string]string{"Content-Type": "application/octet-stream"}))
	if err != nil {
		return nil, transcription.ClassifyError(ID, err)
	}
	if up.Data.UploadURL == "" {
		return nil, goerrors.TranscriptionFailed("upload returned no URL")
	}

	model := opts.Model
	if model == "" {
		model = b.cfg.SpeechModel
	}
	req := transcriptRequest{
		AudioURL:      up.Data.UploadURL,
		SpeakerLabels: opts.Diarize,
		LanguageCode:  opts.Language,
		SpeechModel:   model,
	}
	// The API assumes English unless told otherwise.
	if req.LanguageCode == "" {
		req.LanguageDetection = true
	}

	// A retried create would start a second billed job that is never polled.
	created, err := rest.Post[transcript](ctx, b.rest, "/v2/transcript", req, rest.WithoutRetry())
	if err != nil {
		return nil, transcription.ClassifyError(ID, err)
	}
	if created.Data.ID == "" {
		return nil, goerrors.TranscriptionFailed("job creation returned no id")
	}

	b.log.WithContext(ctx).Debug("transcription job created", logger.Fields("job_id", created.Data.ID))
	done, err := b.wait(ctx, created.Data.ID)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = defaultModel
	}
	return b.toResult(done, model, opts), nil
}

func (b *Backend) wait(ctx context.Context, id string) (transcript, error) {
	cfg := resilience.PollConfig{
		Interval: resilience.Backoff{Initial: b.cfg.PollInitial, Max: b.cfg.PollMax, Factor: pollFactor},
		Timeout:  b.cfg.PollTimeout,
		OnWait: func(check int, wait time.Duration) {
			b.log.Debug("transcription job pending", logger.Fields("job_id", id, "check", check, "wait_ms", wait.Milliseconds()))
		},
	}
	t, err := resilience.Poll(ctx, cfg, func(ctx context.Context) (transcript, bool, error) {
		resp, err := rest.Get[transcript](ctx, b.rest, "/v2/transcript/"+id)
		if err != nil {
			return transcript{}, false, transcription.ClassifyError(ID, err)
		}
		switch resp.Data.Status {
		case statusCompleted:
			return resp.Data, true, nil
		case statusError:
			return transcript{}, false, goerrors.TranscriptionFailed(resp.Data.Error).WithDetail("job_id", id)
		}
		return transcript{}, false, nil
	})
	switch {
	case errors.Is(err, resilience.ErrPollTimeout):
		return transcript{}, goerrors.Timeout("assemblyai job " + id).WithCause(err)
	case err != nil:
		return transcript{}, transcription.ClassifyError(ID, err)
	}
	return t, nil
}

func (b *Backend) toResult(t transcript, model string, opts transcription.Options) *transcription.CallResult {
	segs := make([]transcription.Segment, 0, len(t.Utterances))
	for _, u := range t.Utterances {
		segs = append(segs, transcription.Segment{
			Speaker: "Speaker " + u.Speaker,
			Start:   float64(u.Start) / 1000,
			End:     float64(u.End) / 1000,
			Text:    u.Text,
		})
	}
	if len(segs) == 0 && t.Text != "" {
		segs = append(segs, transcription.Segment{Start: 0, End: t.AudioDuration, Text: t.Text})
	}

	language := t.LanguageCode
	if language == "" {
		language = opts.Language
	}
	return &transcription.CallResult{
		Text:         t.Text,
		Duration:     t.AudioDuration,
		CostCents:    b.cfg.Rate.CostCents(t.AudioDuration),
		Model:        model,
		Segments:     segs,
		SpeakerCount: len(transcription.UniqueSpeakers(segs)),
		Language:     language,
		Endpoint:     b.rest.HTTP().BaseURL() + "/v2/transcript",
	}
}
