package assemblyai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/transcription"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standup.m4a")
	if err := os.WriteFile(path, []byte("raw-audio"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeAPI serves upload, create and status endpoints. statuses are returned
// by successive status polls; the last one repeats.
type fakeAPI struct {
	t        *testing.T
	statuses []string
	final    string
	polls    atomic.Int32
	created  transcriptRequest
	// createStatus, when set, fails job creation with that status.
	createStatus int
	creates      atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "aai-key" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Authentication error, API token missing/invalid"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v2/upload":
		body, _ := io.ReadAll(r.Body)
		if string(body) != "raw-audio" {
			f.t.Errorf("unexpected upload body %q", body)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
			f.t.Errorf("unexpected upload content type %q", ct)
		}
		_, _ = w.Write([]byte(`{"upload_url":"https://cdn.assemblyai.com/upload/abc"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
		f.creates.Add(1)
		if f.createStatus != 0 {
			w.WriteHeader(f.createStatus)
			_, _ = w.Write([]byte(`{"error":"upstream timeout"}`))
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&f.created); err != nil {
			f.t.Fatalf("decode create: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"tx-1","status":"queued"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/tx-1":
		n := int(f.polls.Add(1)) - 1
		status := f.statuses[min(n, len(f.statuses)-1)]
		switch status {
		case "completed":
			_, _ = w.Write([]byte(f.final))
		case "error":
			_, _ = w.Write([]byte(`{"id":"tx-1","status":"error","error":"Audio file could not be decoded"}`))
		default:
			_, _ = w.Write([]byte(`{"id":"tx-1","status":"` + status + `"}`))
		}
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newBackend(t *testing.T, srv *httptest.Server, pollTimeout time.Duration) *Backend {
	t.Helper()
	b, err := New(Config{
		BaseURL:     srv.URL,
		APIKey:      "aai-key",
		PollInitial: 5 * time.Millisecond,
		PollMax:     10 * time.Millisecond,
		PollTimeout: pollTimeout,
	})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

const completed = `{"id":"tx-1","status":"completed","text":"Morning. Hi there.","audio_duration":600,
	"language_code":"pt","utterances":[
	{"speaker":"A","start":0,"end":1500,"text":"Morning."},
	{"speaker":"B","start":1700,"end":3250,"text":"Hi there."}]}`

func TestDispatch_PollsUntilCompleted(t *testing.T) {
	api := &fakeAPI{t: t, statuses: []string{"queued", "processing", "completed"}, final: completed}
	srv := httptest.NewServer(api)
	defer srv.Close()

	res, err := newBackend(t, srv, time.Minute).Dispatch(context.Background(), writeAudio(t), transcription.Options{Diarize: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.polls.Load() != 3 {
		t.Errorf("expected 3 polls, got %d", api.polls.Load())
	}
	if api.created.AudioURL != "https://cdn.assemblyai.com/upload/abc" || !api.created.SpeakerLabels {
		t.Errorf("unexpected create request %+v", api.created)
	}
	if !api.created.LanguageDetection || api.created.LanguageCode != "" {
		t.Errorf("language detection must be requested without a hint: %+v", api.created)
	}

	if len(res.Segments) != 2 || res.SpeakerCount != 2 {
		t.Fatalf("unexpected segments %+v", res.Segments)
	}
	want := transcription.Segment{Speaker: "Speaker B", Start: 1.7, End: 3.25, Text: "Hi there."}
	if res.Segments[1] != want {
		t.Errorf("segment = %+v, want %+v", res.Segments[1], want)
	}
	// 10 minutes at $0.00283 = 2.83 cents
	if res.CostCents != 3 || res.Duration != 600 || res.Language != "pt" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Model != defaultModel {
		t.Errorf("unexpected model %q", res.Model)
	}
}

func TestDispatch_LanguageHint(t *testing.T) {
	api := &fakeAPI{t: t, statuses: []string{"completed"}, final: completed}
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := newBackend(t, srv, time.Minute).Dispatch(context.Background(), writeAudio(t),
		transcription.Options{Language: "es", Model: "universal"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.created.LanguageCode != "es" || api.created.LanguageDetection || api.created.SpeechModel != "universal" {
		t.Errorf("unexpected create request %+v", api.created)
	}
}

func TestDispatch_JobError(t *testing.T) {
	api := &fakeAPI{t: t, statuses: []string{"processing", "error"}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := newBackend(t, srv, time.Minute).Dispatch(context.Background(), writeAudio(t), transcription.Options{})
	if !goerrors.HasCode(err, goerrors.ErrCodeTranscriptionFailed) {
		t.Fatalf("expected TRANSCRIPTION_FAILED, got %v", err)
	}
	appErr, _ := goerrors.AsAppError(err)
	if appErr.Message != "Transcription failed: Audio file could not be decoded" {
		t.Errorf("backend message not surfaced: %q", appErr.Message)
	}
}

func TestDispatch_PollTimeout(t *testing.T) {
	api := &fakeAPI{t: t, statuses: []string{"processing"}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := newBackend(t, srv, 40*time.Millisecond).Dispatch(context.Background(), writeAudio(t), transcription.Options{})
	if !goerrors.HasCode(err, goerrors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	if api.polls.Load() < 2 {
		t.Errorf("expected several polls before timing out, got %d", api.polls.Load())
	}
}

func TestDispatch_Cancelled(t *testing.T) {
	api := &fakeAPI{t: t, statuses: []string{"processing"}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := newBackend(t, srv, time.Minute).Dispatch(ctx, writeAudio(t), transcription.Options{})
	if !goerrors.HasCode(err, goerrors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT on cancellation, got %v", err)
	}
}

func TestDispatch_InvalidKey(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{t: t})
	defer srv.Close()

	b, _ := New(Config{BaseURL: srv.URL, APIKey: "wrong"})
	_, err := b.Dispatch(context.Background(), writeAudio(t), transcription.Options{})
	if !goerrors.HasCode(err, goerrors.ErrCodeInvalidCredentials) {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}
}

func TestDispatch_JobCreationNotRetried(t *testing.T) {
	api := &fakeAPI{t: t, statuses: []string{"completed"}, final: completed, createStatus: http.StatusServiceUnavailable}
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := newBackend(t, srv, time.Minute).Dispatch(context.Background(), writeAudio(t), transcription.Options{})
	if !goerrors.HasCode(err, goerrors.ErrCodeBackend) {
		t.Fatalf("expected BACKEND_ERROR, got %v", err)
	}
	if n := api.creates.Load(); n != 1 {
		t.Errorf("job creation sent %d times, want 1", n)
	}
	if api.polls.Load() != 0 {
		t.Error("no job must be polled after a failed create")
	}
}

func TestDescriptor(t *testing.T) {
	b, _ := New(Config{})
	d := b.Descriptor()
	if d.Priority != 1 || !d.NativeDiarization || d.MaxFileSize <= 2*1024*1024*1024 {
		t.Errorf("unexpected descriptor %+v", d)
	}
	if b.IsAvailable(context.Background()) {
		t.Error("expected unavailable without key")
	}
}
