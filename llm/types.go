package llm

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest is the universal input for all dialects.
type CompletionRequest struct {
	// Model overrides the adapter's default model.
	Model        string    `json:"model,omitempty"`
	Messages     []Message `json:"messages"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Temperature  float64   `json:"temperature,omitempty"`
	// MaxTokens limits the response length. 0 means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
	// JSON asks the provider for a JSON-only response where supported.
	JSON bool `json:"json,omitempty"`
}

// CompletionResponse is the universal output from all dialects.
type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
	// CostCents is the priced cost of the call.
	CostCents int `json:"cost_cents"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Cents implements provider.Priced.
func (r CompletionResponse) Cents() int { return r.CostCents }
