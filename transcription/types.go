package transcription

import (
	"strings"
	"time"

	"github.com/kbukum/meetscribe/validation"
)

// Options configures one transcription request.
type Options struct {
	// Backend is the preferred backend ID. Empty or unconfigured falls back
	// to priority order.
	Backend string `json:"backend,omitempty"`
	// Model overrides the backend's default model.
	Model string `json:"model,omitempty"`
	// Language is an ISO-639 hint. Empty requests automatic detection.
	Language     string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	Diarize      bool   `json:"diarize"`
	AutoCompress bool   `json:"auto_compress"`
	CropSilence  bool   `json:"crop_silence"`
	// MinSilenceSeconds is the shortest silence that gets cropped.
	MinSilenceSeconds float64  `json:"min_silence_seconds,omitempty" validate:"gte=0,lte=600"`
	GenerateTitle     bool     `json:"generate_title"`
	ValidateQuality   bool     `json:"validate_quality"`
	IdentifySpeakers  bool     `json:"identify_speakers"`
	MeetingTitle      string   `json:"meeting_title,omitempty" validate:"max=500"`
	Participants      []string `json:"participants,omitempty" validate:"max=100,dive,max=200"`
}

// VocabularyHint joins the meeting title and participant names into a short
// prompt that biases the spelling of names. Empty when neither is set.
func (o Options) VocabularyHint() string {
	var parts []string
	if t := strings.TrimSpace(o.MeetingTitle); t != "" {
		parts = append(parts, "Meeting: "+t+".")
	}
	if len(o.Participants) > 0 {
		parts = append(parts, "Participants: "+strings.Join(o.Participants, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// Request is one invocation of the pipeline.
type Request struct {
	AudioPath string  `json:"audio_path" validate:"required"`
	Options   Options `json:"options"`
}

// Validate checks the request fields.
func (r Request) Validate() error {
	return validation.Validate(r)
}

// Descriptor is static metadata about a backend.
type Descriptor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	// MaxFileSize is the largest accepted upload in bytes.
	MaxFileSize int64 `json:"max_file_size"`
	// Priority ranks reliability; lower is tried first.
	Priority int `json:"priority"`
	// NativeDiarization is true when the backend returns speaker labels.
	NativeDiarization bool `json:"native_diarization"`
}

// Fits reports whether a file of size bytes is accepted.
func (d Descriptor) Fits(size int64) bool {
	return size <= d.MaxFileSize
}

// Segment is a time-aligned piece of transcript. Speaker is empty when the
// segment is unlabeled.
type Segment struct {
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// CallResult is the normalized reply of one backend dispatch.
type CallResult struct {
	Text string `json:"text"`
	// Duration is the audio length in seconds.
	Duration     float64   `json:"duration"`
	CostCents    int       `json:"cost_cents"`
	Model        string    `json:"model"`
	Segments     []Segment `json:"segments,omitempty"`
	SpeakerCount int       `json:"speaker_count,omitempty"`
	Language     string    `json:"language,omitempty"`
	// Endpoint and token counts feed the call log.
	Endpoint     string `json:"-"`
	InputTokens  int    `json:"-"`
	OutputTokens int    `json:"-"`
}

// QualityResult is the verdict of the quality validator. Rubbish implies
// Valid is false.
type QualityResult struct {
	Valid      bool    `json:"valid"`
	Rubbish    bool    `json:"rubbish"`
	Issue      string  `json:"issue,omitempty"`
	Confidence float64 `json:"confidence"`
	CostCents  int     `json:"cost_cents"`
}

// InferredSpeaker maps a speaker label to a best-guess identity.
type InferredSpeaker struct {
	SpeakerID  string  `json:"speaker_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence,omitempty"`
	Role       string  `json:"role,omitempty"`
}

// Result is the terminal artifact of one request.
type Result struct {
	Text           string            `json:"text"`
	Duration       float64           `json:"duration"`
	CostCents      int               `json:"cost_cents"`
	Segments       []Segment         `json:"segments"`
	SpeakerCount   int               `json:"speaker_count"`
	Language       string            `json:"language,omitempty"`
	Title          *string           `json:"title,omitempty"`
	Backend        string            `json:"backend"`
	Model          string            `json:"model"`
	ProcessingTime time.Duration     `json:"processing_time"`
	Compressed     bool              `json:"compressed"`
	SilenceCropped bool              `json:"silence_cropped"`
	Quality        *QualityResult    `json:"quality,omitempty"`
	Speakers       []InferredSpeaker `json:"speakers,omitempty"`
}
