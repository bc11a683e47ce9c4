package transcription

import "github.com/kbukum/meetscribe/util"

// MinuteRate prices audio by the minute in US dollars.
type MinuteRate float64

// CostCents prices seconds of audio, rounded up to whole cents with a one
// cent minimum for any audio.
func (r MinuteRate) CostCents(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return max(util.CentsFromUSD(seconds/60*float64(r)), 1)
}

// TokenRate prices tokens per million in US dollars.
type TokenRate struct {
	InputPerMillion  float64 `yaml:"input_per_million" mapstructure:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million" mapstructure:"output_per_million"`
}

// CostCents prices token usage, rounded up to whole cents with a one cent
// minimum when any tokens were consumed.
func (r TokenRate) CostCents(inputTokens, outputTokens int) int {
	if inputTokens <= 0 && outputTokens <= 0 {
		return 0
	}
	usd := float64(inputTokens)*r.InputPerMillion/1e6 + float64(outputTokens)*r.OutputPerMillion/1e6
	return max(util.CentsFromUSD(usd), 1)
}
