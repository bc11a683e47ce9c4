package diarization

import (
	"context"

	"github.com/kbukum/meetscribe/provider"
	"github.com/kbukum/meetscribe/transcription"
)

// Request is an unlabeled transcript to attribute.
type Request struct {
	Transcript string `json:"transcript"`
	// Duration is the audio length in seconds. When positive, estimated
	// timings are scaled to fit inside it.
	Duration float64 `json:"duration,omitempty"`
	Language string  `json:"language,omitempty"`
}

// Response holds the labeled segments.
type Response struct {
	Segments    []transcription.Segment `json:"segments"`
	NumSpeakers int                     `json:"num_speakers"`
	Model       string                  `json:"model,omitempty"`
	CostCents   int                     `json:"cost_cents"`
}

// Provider attributes transcripts to speakers.
type Provider interface {
	provider.Provider
	// Diarize labels req.Transcript. Implementations that spend money before
	// failing return a non-nil Response carrying the cost alongside the error.
	Diarize(ctx context.Context, req Request) (*Response, error)
}
