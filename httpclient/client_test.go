package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/meetscribe/resilience"
)

func TestClient_AuthAndQuery(t *testing.T) {
	var gotAuth, gotKey, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.URL.Query().Get("key")
		gotModel = r.URL.Query().Get("model")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Auth: TokenAuth("Token", "dg-key")})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v1/listen",
		Query:  map[string]string{"model": "nova-3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Token dg-key" {
		t.Errorf("expected token auth header, got %q", gotAuth)
	}
	if gotModel != "nova-3" {
		t.Errorf("expected model query, got %q", gotModel)
	}

	_, err = c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/x",
		Auth:   APIKeyAuthQuery("g-key", "key"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotKey != "g-key" {
		t.Errorf("expected query key override, got %q", gotKey)
	}
}

func TestClient_JSONBody(t *testing.T) {
	var ct string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "v2/transcript", Body: map[string]any{"speaker_labels": true}}); err != nil {
		t.Fatal(err)
	}
	if ct != "application/json" {
		t.Errorf("expected json content type, got %q", ct)
	}
	if payload["speaker_labels"] != true {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestClient_FileBodyReopenedOnRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.m4a")
	if err := os.WriteFile(path, []byte("fake-audio-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	var lastBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		lastBody = string(b)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"upload_url":"https://cdn/x"}`))
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.Backoff = resilience.Backoff{Initial: time.Millisecond}
	c, _ := New(Config{BaseURL: srv.URL, Retry: retry})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/v2/upload", Body: File(path, "")})
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
	if lastBody != "fake-audio-bytes" {
		t.Errorf("retried upload body = %q", lastBody)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success status, got %d", resp.StatusCode)
	}
}

func TestClient_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.Backoff = resilience.Backoff{Initial: time.Millisecond}
	c, _ := New(Config{BaseURL: srv.URL, Retry: retry})

	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/v2/transcript", Body: `{}`, NoRetry: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}

	calls.Store(0)
	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v2/transcript/tx-1"})
	if calls.Load() < 2 {
		t.Errorf("retryable request must still be retried, got %d attempts", calls.Load())
	}
}

func TestClient_MissingFile(t *testing.T) {
	c, _ := New(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", Body: File("/does/not/exist", "")})
	var hErr *Error
	if !errors.As(err, &hErr) || hErr.Code != ErrCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		code      ErrorCode
		retryable bool
		message   string
	}{
		{401, `{"error":"Authentication error, API token missing/invalid"}`, ErrCodeAuth, false, "Authentication error, API token missing/invalid"},
		{403, `{"error":{"message":"API key not valid"}}`, ErrCodeAuth, false, "API key not valid"},
		{404, ``, ErrCodeNotFound, false, "HTTP 404"},
		{429, `{"message":"slow down"}`, ErrCodeRateLimit, true, "slow down"},
		{400, `{"err_msg":"bad audio"}`, ErrCodeValidation, false, "bad audio"},
		{503, `upstream unavailable`, ErrCodeServer, true, "upstream unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			var hErr *Error
			if !errors.As(err, &hErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if hErr.Code != tt.code || hErr.Retryable != tt.retryable {
				t.Errorf("got code=%s retryable=%v", hErr.Code, hErr.Retryable)
			}
			if hErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, hErr.Message)
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("expected response with status %d", tt.status)
			}
		})
	}
}

func TestClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsConnection(err) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("connection errors should be retryable")
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestClient_CircuitBreakerIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := DefaultCircuitBreakerConfig("test")
	cb.MaxFailures = 2
	c, _ := New(Config{BaseURL: srv.URL, CircuitBreaker: cb})

	for i := 0; i < 3; i++ {
		_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/bad"})
	}
	for i := 0; i < 2; i++ {
		_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/down"})
	}
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/down"})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls.Load() != 5 {
		t.Errorf("expected 5 requests to reach the server, got %d", calls.Load())
	}
}
