package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kbukum/meetscribe/httpclient"
	"github.com/kbukum/meetscribe/httpclient/rest"
	"github.com/kbukum/meetscribe/provider"
)

// ErrNoDialect is returned by New when no dialect is given.
var ErrNoDialect = errors.New("llm: dialect is required")

var _ provider.RequestResponse[CompletionRequest, CompletionResponse] = (*Adapter)(nil)

// Adapter is a priced LLM client for one provider and default model.
type Adapter struct {
	name      string
	rest      *rest.Client
	dialect   Dialect
	model     string
	temp      float64
	maxTokens int
	pricing   Pricing
	hasKey    bool
}

// New creates an adapter for dialect.
func New(dialect Dialect, cfg Config) (*Adapter, error) {
	if dialect == nil {
		return nil, ErrNoDialect
	}
	if cfg.Dialect == "" {
		cfg.Dialect = dialect.Name()
	}
	cfg.ApplyDefaults()

	httpCfg := httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    dialect.Auth(cfg.APIKey),
	}
	if cfg.MaxAttempts > 1 {
		httpCfg.Retry = httpclient.DefaultRetryConfig()
		httpCfg.Retry.MaxAttempts = cfg.MaxAttempts
	}
	client, err := rest.New(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("llm: create rest client: %w", err)
	}

	return &Adapter{
		name:      cfg.Name,
		rest:      client,
		dialect:   dialect,
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
		pricing:   cfg.Pricing,
		hasKey:    cfg.APIKey != "",
	}, nil
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return a.name }

// IsAvailable reports whether credentials are configured.
func (a *Adapter) IsAvailable(_ context.Context) bool { return a.hasKey }

// Model returns the default model.
func (a *Adapter) Model() string { return a.model }

// Endpoint returns the URL completions are posted to.
func (a *Adapter) Endpoint() string {
	return a.rest.HTTP().BaseURL() + a.dialect.ChatPath(a.model)
}

// Execute sends a completion request and prices the response.
func (a *Adapter) Execute(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	a.applyDefaults(&req)

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: build request: %w", err)
	}

	resp, err := rest.Post[json.RawMessage](ctx, a.rest, a.dialect.ChatPath(req.Model), body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: execute: %w", err)
	}

	result, err := a.dialect.ParseResponse(resp.Data)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: parse response: %w", err)
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	result.CostCents = a.pricing.CostCents(result.Usage)
	return *result, nil
}

func (a *Adapter) applyDefaults(req *CompletionRequest) {
	if req.Model == "" {
		req.Model = a.model
	}
	if req.Temperature == 0 {
		req.Temperature = a.temp
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.maxTokens
	}
}
