package speaker

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/transcription"
)

// DefaultConfidence is assumed when the model omits a confidence.
const DefaultConfidence = 0.5

// ErrNoSpeakers is returned when the answer holds no usable entry.
var ErrNoSpeakers = errors.New("speaker: no usable speaker entries")

type entry struct {
	SpeakerID    string   `json:"speakerId"`
	InferredName string   `json:"inferredName"`
	Confidence   *float64 `json:"confidence"`
	Evidence     string   `json:"evidence"`
	Role         string   `json:"role"`
}

// Parse decodes a model answer shaped as {"speakers":[...]} or a bare
// array. Entries without speakerId or inferredName, entries for labels not in
// expected, and duplicates are dropped.
func Parse(content string, expected []string) ([]transcription.InferredSpeaker, error) {
	raw := []byte(llm.ExtractJSON(content))

	var entries []entry
	var wrapped struct {
		Speakers []entry `json:"speakers"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		entries = wrapped.Speakers
	} else if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("speaker: decode answer: %w", err)
	}

	out := make([]transcription.InferredSpeaker, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		id, name := strings.TrimSpace(e.SpeakerID), strings.TrimSpace(e.InferredName)
		if id == "" || name == "" || seen[id] || !slices.Contains(expected, id) {
			continue
		}
		seen[id] = true
		conf := DefaultConfidence
		if e.Confidence != nil {
			conf = min(max(*e.Confidence, 0), 1)
		}
		out = append(out, transcription.InferredSpeaker{
			SpeakerID:  id,
			Name:       name,
			Confidence: conf,
			Evidence:   strings.TrimSpace(e.Evidence),
			Role:       strings.TrimSpace(e.Role),
		})
	}
	if len(out) == 0 {
		return nil, ErrNoSpeakers
	}
	return out, nil
}
