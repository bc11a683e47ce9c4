package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/transcription"
)

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("wav-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const listenReply = `{
	"metadata":{"duration":300,"request_id":"r-1"},
	"results":{"channels":[{"detected_language":"es","alternatives":[{
		"transcript":"Hola. ¿Qué tal? Bien.",
		"words":[
			{"word":"hola","punctuated_word":"Hola.","start":0.2,"end":0.6,"speaker":0},
			{"word":"qué","punctuated_word":"¿Qué","start":1.0,"end":1.2,"speaker":1},
			{"word":"tal","punctuated_word":"tal?","start":1.2,"end":1.5,"speaker":1},
			{"word":"bien","punctuated_word":"Bien.","start":2.0,"end":2.4,"speaker":0}
		]}]}]}
}`

func TestDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/listen" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token dg-key" {
			t.Errorf("unexpected auth %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("unexpected content type %q", got)
		}
		q := r.URL.Query()
		if q.Get("model") != DefaultModel || q.Get("diarize") != "true" || q.Get("punctuate") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("detect_language") != "true" || q.Has("language") {
			t.Errorf("expected language detection without hint, got %s", r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "wav-bytes" {
			t.Errorf("expected raw audio body, got %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listenReply))
	}))
	defer srv.Close()

	b, err := New(Config{BaseURL: srv.URL, APIKey: "dg-key"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := b.Dispatch(context.Background(), writeAudio(t, "a.wav"), transcription.Options{Diarize: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []transcription.Segment{
		{Speaker: "Speaker A", Start: 0.2, End: 0.6, Text: "Hola."},
		{Speaker: "Speaker B", Start: 1.0, End: 1.5, Text: "¿Qué tal?"},
		{Speaker: "Speaker A", Start: 2.0, End: 2.4, Text: "Bien."},
	}
	if len(res.Segments) != len(want) {
		t.Fatalf("got %d segments: %+v", len(res.Segments), res.Segments)
	}
	for i := range want {
		if res.Segments[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, res.Segments[i], want[i])
		}
	}
	// 5 minutes at $0.0043 = 2.15 cents
	if res.CostCents != 3 || res.SpeakerCount != 2 || res.Language != "es" || res.Duration != 300 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestParams_LanguageHint(t *testing.T) {
	b, _ := New(Config{})
	p := b.params(transcription.Options{Language: "pt", Model: "nova-3"})
	if p["language"] != "pt" || p["model"] != "nova-3" {
		t.Errorf("unexpected params %v", p)
	}
	if _, ok := p["detect_language"]; ok {
		t.Error("detect_language must not be sent with an explicit hint")
	}
	if p["diarize"] != "false" {
		t.Errorf("expected diarize=false, got %q", p["diarize"])
	}
}

func TestGroupWords(t *testing.T) {
	spk := func(i int) *int { return &i }
	words := []word{
		{Word: "a", Start: 0, End: 1},
		{Word: "b", Start: 1, End: 2},
		{Word: "c", Start: 2, End: 3, Speaker: spk(2)},
	}
	segs := groupWords(words)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %+v", segs)
	}
	if segs[0].Speaker != "" || segs[0].Text != "a b" || segs[0].End != 2 {
		t.Errorf("unexpected unlabeled segment %+v", segs[0])
	}
	if segs[1].Speaker != "Speaker C" {
		t.Errorf("unexpected label %q", segs[1].Speaker)
	}
	if groupWords(nil) != nil {
		t.Error("expected nil for no words")
	}
}

func TestDispatch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   goerrors.ErrorCode
	}{
		{"invalid key", http.StatusUnauthorized, `{"err_code":"INVALID_AUTH","err_msg":"Invalid credentials."}`, goerrors.ErrCodeInvalidCredentials},
		{"bad audio", http.StatusBadRequest, `{"err_code":"Bad Request","err_msg":"corrupt or unsupported data"}`, goerrors.ErrCodeBackend},
		{"no alternatives", http.StatusOK, `{"metadata":{"duration":1},"results":{"channels":[]}}`, goerrors.ErrCodeTranscriptionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			b, _ := New(Config{BaseURL: srv.URL, APIKey: "k"})
			_, err := b.Dispatch(context.Background(), writeAudio(t, "a.mp3"), transcription.Options{})
			if !goerrors.HasCode(err, tt.want) {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestDescriptor(t *testing.T) {
	b, _ := New(Config{})
	if d := b.Descriptor(); d.Priority != 2 || !d.NativeDiarization {
		t.Errorf("unexpected descriptor %+v", d)
	}
}
