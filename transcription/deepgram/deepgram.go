// Package deepgram implements the query-parameter transcription backend: raw
// audio bytes are posted to /v1/listen with every option encoded in the
// query string, and the word-level reply is grouped into speaker segments.
package deepgram

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/httpclient"
	"github.com/kbukum/meetscribe/httpclient/rest"
	"github.com/kbukum/meetscribe/transcription"
)

const (
	// ID is the backend identifier.
	ID = "deepgram"

	DefaultBaseURL = "https://api.deepgram.com"
	DefaultModel   = "nova-2"

	// MaxFileSize is the documented upload limit.
	MaxFileSize = 2 * 1024 * 1024 * 1024

	// DefaultRate is USD per audio minute for pre-recorded audio.
	DefaultRate transcription.MinuteRate = 0.0043

	defaultTimeout = 10 * time.Minute
	listenPath     = "/v1/listen"
)

// Config configures the backend.
type Config struct {
	BaseURL string                   `yaml:"base_url" mapstructure:"base_url"`
	Model   string                   `yaml:"model" mapstructure:"model"`
	APIKey  string                   `yaml:"-" mapstructure:"api_key"`
	Timeout time.Duration            `yaml:"timeout" mapstructure:"timeout"`
	Rate    transcription.MinuteRate `yaml:"rate" mapstructure:"rate"`
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
	if c.Rate <= 0 {
		c.Rate = DefaultRate
	}
}

// Backend transcribes through the Deepgram pre-recorded API.
type Backend struct {
	cfg  Config
	rest *rest.Client
}

var _ transcription.Backend = (*Backend)(nil)

// New creates the backend.
func New(cfg Config) (*Backend, error) {
	cfg.ApplyDefaults()
	client, err := rest.New(httpclient.Config{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		Auth:           httpclient.TokenAuth("Token", cfg.APIKey),
		Retry:          httpclient.DefaultRetryConfig(),
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ID),
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: %w", err)
	}
	return &Backend{cfg: cfg, rest: client}, nil
}

// Name returns the backend ID.
func (b *Backend) Name() string { return ID }

// IsAvailable reports whether an API key is configured.
func (b *Backend) IsAvailable(_ context.Context) bool { return b.cfg.APIKey != "" }

// Descriptor returns the static backend metadata.
func (b *Backend) Descriptor() transcription.Descriptor {
	return transcription.Descriptor{
		ID:                ID,
		DisplayName:       "Deepgram",
		MaxFileSize:       MaxFileSize,
		Priority:          2,
		NativeDiarization: true,
	}
}

type word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Speaker        *int    `json:"speaker"`
}

type listenResponse struct {
	Metadata struct {
		Duration  float64 `json:"duration"`
		RequestID string  `json:"request_id"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string `json:"transcript"`
				Words      []word `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// params builds the listen query string for opts.
func (b *Backend) params(opts transcription.Options) map[string]string {
	model := opts.Model
	if model == "" {
		model = b.cfg.Model
	}
	q := map[string]string{
		"model":        model,
		"diarize":      strconv.FormatBool(opts.Diarize),
		"punctuate":    "true",
		"smart_format": "true",
	}
	// Without either parameter the API transcribes everything as English.
	if opts.Language != "" {
		q["language"] = opts.Language
	} else {
		q["detect_language"] = "true"
	}
	return q
}

// Dispatch posts the raw file and groups the words into segments.
func (b *Backend) Dispatch(ctx context.Context, path string, opts transcription.Options) (*transcription.CallResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, goerrors.FileNotFound(path)
	}

	params := b.params(opts)
	mediaType := transcription.MediaType(path)
	resp, err := rest.Post[listenResponse](ctx, b.rest, listenPath,
		httpclient.File(path, mediaType),
		rest.WithQuery(params),
		rest.WithHeaders(map[string]string{"Content-Type": mediaType}))
	if err != nil {
		return nil, transcription.ClassifyError(ID, err)
	}

	channels := resp.Data.Results.Channels
	if len(channels) == 0 || len(channels[0].Alternatives) == 0 {
		return nil, goerrors.TranscriptionFailed("deepgram returned no alternatives")
	}
	alt := channels[0].Alternatives[0]
	duration := resp.Data.Metadata.Duration
	text := strings.TrimSpace(alt.Transcript)
	segs := groupWords(alt.Words)
	if len(segs) == 0 && text != "" {
		segs = []transcription.Segment{{Start: 0, End: duration, Text: text}}
	}

	language := channels[0].DetectedLanguage
	if language == "" {
		language = opts.Language
	}
	return &transcription.CallResult{
		Text:         text,
		Duration:     duration,
		CostCents:    b.cfg.Rate.CostCents(duration),
		Model:        params["model"],
		Segments:     segs,
		SpeakerCount: len(transcription.UniqueSpeakers(segs)),
		Language:     language,
		Endpoint:     b.rest.HTTP().BaseURL() + listenPath,
	}, nil
}

// groupWords joins consecutive words of the same speaker into segments. A
// speaker change or the end of the stream closes the current segment. Words
// without a speaker id form unlabeled segments.
func groupWords(words []word) []transcription.Segment {
	var (
		segs  []transcription.Segment
		cur   *transcription.Segment
		texts []string
		curID = -2
	)
	flush := func() {
		if cur != nil {
			cur.Text = strings.Join(texts, " ")
			segs = append(segs, *cur)
		}
		cur, texts = nil, nil
	}

	for _, w := range words {
		id := -1
		if w.Speaker != nil {
			id = *w.Speaker
		}
		if cur == nil || id != curID {
			flush()
			cur = &transcription.Segment{Start: w.Start}
			if id >= 0 {
				cur.Speaker = transcription.SpeakerLabel(id)
			}
			curID = id
		}
		text := w.PunctuatedWord
		if text == "" {
			text = w.Word
		}
		texts = append(texts, text)
		cur.End = w.End
	}
	flush()
	return segs
}
