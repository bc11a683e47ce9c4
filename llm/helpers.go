package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/meetscribe/provider"
)

// Client is any priced completion provider. *Adapter satisfies it, as do
// adapters wrapped in provider middleware.
type Client = provider.RequestResponse[CompletionRequest, CompletionResponse]

// Complete sends a system and user prompt and returns the full response.
func Complete(ctx context.Context, p provider.RequestResponse[CompletionRequest, CompletionResponse], system, user string) (CompletionResponse, error) {
	return p.Execute(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: user}},
	})
}

// CompleteStructured sends a prompt expecting JSON and decodes the answer
// into result. The response is returned even when decoding fails so callers
// can still account for its cost.
func CompleteStructured(ctx context.Context, p provider.RequestResponse[CompletionRequest, CompletionResponse], system, user string, result any) (CompletionResponse, error) {
	system += "\n\nRespond with ONLY valid JSON. No markdown, no code fences, no explanations."

	resp, err := p.Execute(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: user}},
		JSON:         true,
	})
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Content)), result); err != nil {
		return resp, fmt.Errorf("llm: unmarshal structured response: %w", err)
	}
	return resp, nil
}

// ExtractJSON pulls a JSON object or array out of model output that may be
// wrapped in markdown fences or prose.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s[3:], "\n"); idx >= 0 {
			s = s[3+idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	obj := strings.Index(s, "{")
	arr := strings.Index(s, "[")
	open, closer := obj, "}"
	if arr >= 0 && (obj < 0 || arr < obj) {
		open, closer = arr, "]"
	}
	if open < 0 {
		return s
	}
	if end := strings.LastIndex(s, closer); end > open {
		return s[open : end+1]
	}
	return s
}
