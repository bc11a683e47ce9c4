// Package quality flags transcripts that are hallucinated, repetitive or
// garbage.
//
// Validation runs in two tiers. Local heuristics are tried first and cost
// nothing; a heuristic hit is final. Otherwise a sample of the transcript is
// classified by a language model. Validation never fails a transcription: a
// model or parse failure yields an optimistic, low-confidence verdict.
package quality

import (
	"context"
	"strings"

	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/transcription"
	"github.com/kbukum/meetscribe/util"
)

const (
	// HeuristicConfidence is reported when a heuristic flags the transcript.
	HeuristicConfidence = 0.95
	// FallbackConfidence is reported when the model check could not run or
	// its answer could not be used.
	FallbackConfidence = 0.3
	// UncheckedConfidence is reported when heuristics pass and no model is
	// configured.
	UncheckedConfidence = 0.5

	sampleSize = 600
)

const systemPrompt = `You check automatic speech recognition output for quality problems.
Flag the transcript as rubbish when it is hallucinated, stuck in a loop
repeating the same phrase, mostly non-speech annotations, or unrelated
filler typical of transcription models run on silence or noise. The sample
may be three excerpts (beginning, middle, end) separated by "...".

Return {"valid": bool, "rubbish": bool, "issue": "short description or empty", "confidence": 0.0-1.0}.`

type verdict struct {
	Valid      bool    `json:"valid"`
	Rubbish    bool    `json:"rubbish"`
	Issue      string  `json:"issue"`
	Confidence float64 `json:"confidence"`
}

// Validator checks transcript quality.
type Validator struct {
	client llm.Client
	log    *logger.Logger
}

// New creates a validator. A nil client limits validation to heuristics.
func New(client llm.Client) *Validator {
	return &Validator{client: client, log: logger.Get("quality")}
}

// Validate returns the quality verdict for text. It never returns nil.
func (v *Validator) Validate(ctx context.Context, text string) *transcription.QualityResult {
	log := v.log.WithContext(ctx)
	if issue, bad := Check(text); bad {
		log.Info("transcript flagged by heuristics", logger.Fields("issue", issue))
		return &transcription.QualityResult{Rubbish: true, Issue: issue, Confidence: HeuristicConfidence}
	}
	if v.client == nil || !v.client.IsAvailable(ctx) {
		return &transcription.QualityResult{Valid: true, Confidence: UncheckedConfidence}
	}

	var out verdict
	resp, err := llm.CompleteStructured(ctx, v.client, systemPrompt, "Transcript sample:\n"+Sample(text, sampleSize), &out)
	if err != nil {
		log.Warn("quality check failed, assuming valid", logger.ErrorFields("validate_quality", err))
		return &transcription.QualityResult{Valid: true, Confidence: FallbackConfidence, CostCents: resp.CostCents}
	}

	res := &transcription.QualityResult{
		Valid:      out.Valid && !out.Rubbish,
		Rubbish:    out.Rubbish,
		Issue:      strings.TrimSpace(out.Issue),
		Confidence: min(max(out.Confidence, 0), 1),
		CostCents:  resp.CostCents,
	}
	log.Debug("quality checked", logger.Fields(
		"valid", res.Valid, "rubbish", res.Rubbish, logger.FieldCost, res.CostCents))
	return res
}

// Sample returns text when it is short, or its beginning, middle and end,
// n characters each, joined by an ellipsis.
func Sample(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= 3*n {
		return text
	}
	mid := len(runes)/2 - n/2
	return strings.Join([]string{
		util.Slice(text, 0, n),
		util.Slice(text, mid, n),
		util.Slice(text, len(runes)-n, n),
	}, "\n...\n")
}
