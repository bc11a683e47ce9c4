package diarization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/transcription"
	"github.com/kbukum/meetscribe/util"
)

const (
	// MaxExcerpt is the number of characters sent to the model.
	MaxExcerpt = 12000
	// WordsPerSecond is the speaking rate used to estimate segment timings.
	WordsPerSecond = 2.5
)

// ErrNoSegments is returned when the model produced nothing usable.
var ErrNoSegments = errors.New("diarization: model returned no segments")

const systemPrompt = `You split meeting transcripts into speaker turns.
Identify where the speaker changes from context, conversational cues and
question/answer patterns. Use generic labels such as "Speaker 1", "Speaker 2"
and reuse the same label whenever the same person speaks again. Keep the
original wording; do not summarize, translate or drop text.

Return {"segments":[{"speaker":"Speaker 1","text":"..."}]} in transcript order.`

type modelOutput struct {
	Segments []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"segments"`
}

// Normalizer diarizes with a single language model call.
type Normalizer struct {
	client llm.Client
	log    *logger.Logger
}

var _ Provider = (*Normalizer)(nil)

// NewNormalizer creates a normalizer over client.
func NewNormalizer(client llm.Client) *Normalizer {
	return &Normalizer{client: client, log: logger.Get("diarization")}
}

// Name returns the provider name.
func (n *Normalizer) Name() string { return "llm-diarizer" }

// IsAvailable reports whether the underlying model is usable.
func (n *Normalizer) IsAvailable(ctx context.Context) bool {
	return n.client != nil && n.client.IsAvailable(ctx)
}

// Diarize labels the first MaxExcerpt characters of the transcript. Text
// beyond the excerpt is appended as a trailing unlabeled segment so nothing
// is lost.
func (n *Normalizer) Diarize(ctx context.Context, req Request) (*Response, error) {
	text := strings.TrimSpace(req.Transcript)
	if text == "" {
		return nil, ErrNoSegments
	}
	excerpt, remainder := splitExcerpt(text, MaxExcerpt)

	user := "Transcript:\n" + excerpt
	if req.Language != "" {
		user = "Language: " + req.Language + "\n\n" + user
	}

	var out modelOutput
	resp, err := llm.CompleteStructured(ctx, n.client, systemPrompt, user, &out)
	partial := &Response{Model: resp.Model, CostCents: resp.CostCents}
	if err != nil {
		return partial, fmt.Errorf("diarization: %w", err)
	}

	segs := assemble(out, remainder, req.Duration)
	if !transcription.HasSpeakerLabels(segs) {
		return partial, ErrNoSegments
	}
	partial.Segments = segs
	partial.NumSpeakers = len(transcription.UniqueSpeakers(segs))

	n.log.WithContext(ctx).Debug("transcript diarized", logger.Fields(
		"segments", len(segs), "speakers", partial.NumSpeakers,
		"truncated", remainder != "", logger.FieldCost, resp.CostCents))
	return partial, nil
}

// splitExcerpt cuts s after at most limit runes, backing up to the last
// whitespace so no word is split.
func splitExcerpt(s string, limit int) (excerpt, remainder string) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, ""
	}
	cut := limit
	for i := limit; i > limit/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])), strings.TrimSpace(string(runes[cut:]))
}

// assemble relabels the model's speakers as "Speaker A", "Speaker B"... in
// order of appearance and estimates timings from word counts.
func assemble(out modelOutput, remainder string, duration float64) []transcription.Segment {
	labels := map[string]string{}
	segs := make([]transcription.Segment, 0, len(out.Segments)+1)
	cursor := 0.0
	add := func(speaker, text string) {
		words := util.WordCount(text)
		end := cursor + float64(words)/WordsPerSecond
		segs = append(segs, transcription.Segment{Speaker: speaker, Start: cursor, End: end, Text: text})
		cursor = end
	}

	for _, s := range out.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		raw := strings.TrimSpace(s.Speaker)
		label := ""
		if raw != "" {
			var ok bool
			if label, ok = labels[raw]; !ok {
				label = transcription.SpeakerLabel(len(labels))
				labels[raw] = label
			}
		}
		add(label, text)
	}
	if remainder != "" {
		add("", remainder)
	}

	segs = transcription.MergeConsecutive(segs)
	if duration > 0 && cursor > duration {
		scale := duration / cursor
		for i := range segs {
			segs[i].Start *= scale
			segs[i].End *= scale
		}
	}
	return segs
}
