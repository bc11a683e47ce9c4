// Package gemini implements the inline-payload transcription backend: the
// whole file travels base64-encoded inside one generateContent request and
// speakers come back as markers in the generated text.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/httpclient"
	"github.com/kbukum/meetscribe/httpclient/rest"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/transcription"
)

const (
	// ID is the backend identifier.
	ID = "gemini"

	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	// MaxFileSize keeps the base64 request under the 20 MB inline limit.
	MaxFileSize = 14 * 1024 * 1024

	defaultTimeout  = 10 * time.Minute
	maxOutputTokens = 65536
	temperature     = 0.1
	defaultLanguage = "the detected language"
)

// DefaultPricing is USD per million tokens: audio input and text output.
var DefaultPricing = map[string]transcription.TokenRate{
	"gemini-2.0-flash":      {InputPerMillion: 0.70, OutputPerMillion: 0.40},
	"gemini-2.5-flash-lite": {InputPerMillion: 0.30, OutputPerMillion: 0.40},
	"gemini-2.5-flash":      {InputPerMillion: 1.00, OutputPerMillion: 2.50},
	"gemini-3-flash":        {InputPerMillion: 1.00, OutputPerMillion: 3.00},
}

// apiModels maps public model names onto the names the API accepts.
var apiModels = map[string]string{
	"gemini-3-flash": "gemini-3-flash-preview",
}

// Config configures the backend.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	APIKey  string        `yaml:"-" mapstructure:"api_key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Pricing overrides DefaultPricing per model.
	Pricing map[string]transcription.TokenRate `yaml:"pricing" mapstructure:"pricing"`
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

// Backend transcribes through the Gemini generateContent API.
type Backend struct {
	cfg    Config
	rest   *rest.Client
	prober transcription.DurationProber
	log    *logger.Logger
}

var _ transcription.Backend = (*Backend)(nil)

// New creates the backend. prober may be nil, in which case durations are
// reported as zero.
func New(cfg Config, prober transcription.DurationProber) (*Backend, error) {
	cfg.ApplyDefaults()
	client, err := rest.New(httpclient.Config{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		Auth:           httpclient.APIKeyAuthQuery(cfg.APIKey, "key"),
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ID),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Backend{cfg: cfg, rest: client, prober: prober, log: logger.Get(ID)}, nil
}

// Name returns the backend ID.
func (b *Backend) Name() string { return ID }

// IsAvailable reports whether an API key is configured.
func (b *Backend) IsAvailable(_ context.Context) bool { return b.cfg.APIKey != "" }

// Descriptor returns the static backend metadata.
func (b *Backend) Descriptor() transcription.Descriptor {
	return transcription.Descriptor{
		ID:                ID,
		DisplayName:       "Google Gemini",
		MaxFileSize:       MaxFileSize,
		Priority:          4,
		NativeDiarization: true,
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Dispatch sends the file inline and normalizes the generated transcript.
func (b *Backend) Dispatch(ctx context.Context, path string, opts transcription.Options) (*transcription.CallResult, error) {
	model := opts.Model
	if model == "" {
		model = b.cfg.Model
	}
	apiModel := model
	if m, ok := apiModels[model]; ok {
		apiModel = m
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerrors.FileNotFound(path)
		}
		return nil, goerrors.TranscriptionFailed("read audio").WithCause(err)
	}

	var duration float64
	if b.prober != nil {
		if duration, err = b.prober.Duration(ctx, path); err != nil {
			b.log.Warn("could not probe audio duration", logger.ErrorFields("probe", err))
		}
	}

	req := generateRequest{Contents: []content{{Parts: []part{
		{Text: buildPrompt(opts)},
		{InlineData: &inlineData{MimeType: transcription.MediaType(path), Data: base64.StdEncoding.EncodeToString(audio)}},
	}}}}
	req.GenerationConfig.Temperature = temperature
	req.GenerationConfig.MaxOutputTokens = maxOutputTokens

	endpoint := fmt.Sprintf("/v1beta/models/%s:generateContent", apiModel)
	resp, err := rest.Post[generateResponse](ctx, b.rest, endpoint, req)
	if err != nil {
		return nil, transcription.ClassifyError(ID, err)
	}

	text, err := responseText(resp.Data)
	if err != nil {
		return nil, err
	}

	var segs []transcription.Segment
	if opts.Diarize {
		segs = ParseMarkers(text, duration)
	}
	if len(segs) == 0 {
		segs = []transcription.Segment{{Start: 0, End: duration, Text: text}}
	} else {
		text = transcription.Labeled(segs)
	}

	usage := resp.Data.UsageMetadata
	return &transcription.CallResult{
		Text:         text,
		Duration:     duration,
		CostCents:    b.rate(model).CostCents(usage.PromptTokenCount, usage.CandidatesTokenCount),
		Model:        model,
		Segments:     segs,
		SpeakerCount: len(transcription.UniqueSpeakers(segs)),
		Language:     opts.Language,
		Endpoint:     b.rest.HTTP().BaseURL() + endpoint,
		InputTokens:  usage.PromptTokenCount,
		OutputTokens: usage.CandidatesTokenCount,
	}, nil
}

func (b *Backend) rate(model string) transcription.TokenRate {
	if r, ok := b.cfg.Pricing[model]; ok {
		return r
	}
	if r, ok := DefaultPricing[model]; ok {
		return r
	}
	return DefaultPricing[DefaultModel]
}

func responseText(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		if reason := resp.PromptFeedback.BlockReason; reason != "" {
			return "", goerrors.TranscriptionFailed("request blocked: " + reason)
		}
		return "", goerrors.TranscriptionFailed("gemini returned no candidates")
	}
	parts := resp.Candidates[0].Content.Parts
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	text := strings.TrimSpace(strings.Join(texts, " "))
	if text == "" {
		return "", goerrors.TranscriptionFailed("gemini returned an empty transcript (finish reason " +
			resp.Candidates[0].FinishReason + ")")
	}
	return text, nil
}

func buildPrompt(opts transcription.Options) string {
	language := opts.Language
	if language == "" {
		language = defaultLanguage
	}

	var b strings.Builder
	if opts.Diarize {
		fmt.Fprintf(&b, "Transcribe this audio in %s with speaker diarization and timestamps.\n\n", language)
		b.WriteString("RULES:\n")
		b.WriteString("1. Label speakers as Speaker A, Speaker B, etc. based on voice.\n")
		b.WriteString("2. Group consecutive speech from the same speaker into ONE segment.\n")
		b.WriteString("3. Only start a new segment when the speaker CHANGES.\n")
		b.WriteString("4. Include timestamp (MM:SS) at the start of each segment.\n\n")
		b.WriteString("FORMAT:\n")
		b.WriteString("[Speaker A, 0:00] Complete speech until next speaker.\n")
		b.WriteString("[Speaker B, 1:15] Next speaker's complete response.\n\n")
	} else {
		fmt.Fprintf(&b, "Transcribe this audio in %s. Return only the spoken text, without commentary.\n\n", language)
	}
	if hint := opts.VocabularyHint(); hint != "" {
		b.WriteString(hint)
		b.WriteString("\n\n")
	}
	b.WriteString("Transcribe now:")
	return b.String()
}
