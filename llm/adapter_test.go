package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/meetscribe/httpclient"
)

type mockDialect struct {
	buildErr error
}

func (mockDialect) Name() string                 { return "mock" }
func (mockDialect) ChatPath(model string) string { return "/chat/" + model }
func (mockDialect) Auth(key string) *httpclient.AuthConfig {
	return httpclient.APIKeyAuthHeader(key, "X-Key")
}

func (d mockDialect) BuildRequest(req CompletionRequest) (any, error) {
	if d.buildErr != nil {
		return nil, d.buildErr
	}
	return map[string]any{
		"model":       req.Model,
		"system":      req.SystemPrompt,
		"messages":    req.Messages,
		"temperature": req.Temperature,
		"json":        req.JSON,
	}, nil
}

func (mockDialect) ParseResponse(body []byte) (*CompletionResponse, error) {
	var raw struct {
		Content string `json:"content"`
		In      int    `json:"in"`
		Out     int    `json:"out"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return &CompletionResponse{
		Content: raw.Content,
		Usage:   Usage{PromptTokens: raw.In, CompletionTokens: raw.Out, TotalTokens: raw.In + raw.Out},
	}, nil
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc, cfg Config) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	a, err := New(mockDialect{}, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a
}

func TestNew_NilDialect(t *testing.T) {
	if _, err := New(nil, Config{}); !errors.Is(err, ErrNoDialect) {
		t.Fatalf("expected ErrNoDialect, got %v", err)
	}
}

func TestAdapter_Identity(t *testing.T) {
	a, err := New(mockDialect{}, Config{BaseURL: "http://localhost:1", Model: "m1"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Name() != "mock-llm" {
		t.Errorf("Name() = %q, want mock-llm", a.Name())
	}
	if a.IsAvailable(context.Background()) {
		t.Error("adapter without key must be unavailable")
	}
	if a.Endpoint() != "http://localhost:1/chat/m1" {
		t.Errorf("Endpoint() = %q", a.Endpoint())
	}
}

func TestAdapter_ExecuteAppliesDefaultsAndPrices(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/default-model" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Key") != "secret" {
			t.Errorf("missing auth header")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "default-model" || body["temperature"] != 0.2 {
			t.Errorf("defaults not applied: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": "hi", "in": 1_000_000, "out": 1_000_000})
	}, Config{Model: "default-model", APIKey: "secret", Temperature: 0.2,
		Pricing: Pricing{InputPerMillion: 0.10, OutputPerMillion: 0.40}})

	if !a.IsAvailable(context.Background()) {
		t.Fatal("adapter with key must be available")
	}
	resp, err := a.Execute(context.Background(), CompletionRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if resp.Content != "hi" || resp.Model != "default-model" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.CostCents != 50 {
		t.Errorf("CostCents = %d, want 50", resp.CostCents)
	}
}

func TestAdapter_ExecuteHTTPError(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}, Config{Model: "m", APIKey: "k"})

	_, err := a.Execute(context.Background(), CompletionRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if !httpclient.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestAdapter_ExecuteBuildError(t *testing.T) {
	a, err := New(mockDialect{buildErr: errors.New("build failed")}, Config{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	_, err = a.Execute(context.Background(), CompletionRequest{})
	if err == nil || !strings.Contains(err.Error(), "build request") {
		t.Errorf("expected build request error, got %v", err)
	}
}

func TestPricing_CostCents(t *testing.T) {
	p := Pricing{InputPerMillion: 0.30, OutputPerMillion: 2.50}
	tests := []struct {
		usage Usage
		want  int
	}{
		{Usage{}, 0},
		{Usage{PromptTokens: 10}, 1},
		{Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}, 280},
		{Usage{PromptTokens: 100_000, CompletionTokens: 10_000}, 6},
	}
	for _, tt := range tests {
		if got := p.CostCents(tt.usage); got != tt.want {
			t.Errorf("CostCents(%+v) = %d, want %d", tt.usage, got, tt.want)
		}
	}
	if got := (Pricing{}).CostCents(Usage{PromptTokens: 5}); got != 1 {
		t.Errorf("unpriced usage should still cost the minimum, got %d", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{BaseURL: "https://x", Model: "m", Dialect: "gemini"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := Config{Dialect: "ollama", Pricing: Pricing{InputPerMillion: -1}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
