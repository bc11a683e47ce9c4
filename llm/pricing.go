package llm

import "github.com/kbukum/meetscribe/util"

// Pricing is a per-million-token price list in US dollars.
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million" mapstructure:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million" mapstructure:"output_per_million"`
}

// CostCents prices usage, rounding up to whole cents with a one cent minimum
// when any tokens were consumed.
func (p Pricing) CostCents(u Usage) int {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return 0
	}
	usd := float64(u.PromptTokens)*p.InputPerMillion/1e6 +
		float64(u.CompletionTokens)*p.OutputPerMillion/1e6
	return max(util.CentsFromUSD(usd), 1)
}
