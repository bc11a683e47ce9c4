// Package title generates a short descriptive title for a transcript.
package title

import (
	"context"
	"strings"

	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/util"
)

const (
	// Excerpt is the number of leading transcript characters sent.
	Excerpt = 2000
	// MaxLength caps the returned title.
	MaxLength = 80
)

const systemPrompt = `Write a short, specific title (3 to 8 words) for this meeting transcript.
Answer with the title only: no quotes, no trailing punctuation, no prefix.`

// Result is a generated title and its cost.
type Result struct {
	// Title is nil when no title could be produced.
	Title     *string
	CostCents int
}

// Generator produces titles with one small model call.
type Generator struct {
	client llm.Client
	log    *logger.Logger
}

// New creates a generator. A nil client disables generation.
func New(client llm.Client) *Generator {
	return &Generator{client: client, log: logger.Get("title")}
}

// Generate titles text. Failures are logged and yield a nil title.
func (g *Generator) Generate(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" || g.client == nil || !g.client.IsAvailable(ctx) {
		return Result{}
	}
	resp, err := llm.Complete(ctx, g.client, systemPrompt, util.Truncate(text, Excerpt))
	if err != nil {
		g.log.WithContext(ctx).Warn("title generation failed", logger.ErrorFields("generate_title", err))
		return Result{CostCents: resp.CostCents}
	}
	res := Result{CostCents: resp.CostCents}
	if t := Clean(resp.Content); t != "" {
		res.Title = util.Ptr(t)
	}
	return res
}

// Clean normalizes a model answer: first line only, surrounding quotes and
// a "Title:" prefix removed, trailing punctuation stripped, capped at
// MaxLength characters.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > 6 && strings.EqualFold(s[:6], "title:") {
		s = strings.TrimSpace(s[6:])
	}
	s = strings.Trim(s, "\"'`*“”‘’ ")
	s = strings.TrimRight(s, ".!?,;: ")
	if len([]rune(s)) > MaxLength {
		s = strings.TrimSpace(util.Truncate(s, MaxLength))
	}
	return s
}
