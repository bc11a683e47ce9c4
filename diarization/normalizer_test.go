package diarization

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/provider"
	"github.com/kbukum/meetscribe/transcription"
)

// fakeModel answers every completion with content and records the prompt.
func fakeModel(content string, cost int, seen *string) llm.Client {
	return provider.NewFunc("fake", func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		if seen != nil {
			*seen = req.Messages[0].Content
		}
		return llm.CompletionResponse{Content: content, Model: "fake-1", CostCents: cost}, nil
	})
}

func TestDiarize(t *testing.T) {
	content := `{"segments":[
		{"speaker":"Speaker 1","text":"Good morning everyone, shall we start?"},
		{"speaker":"Speaker 2","text":"Yes."},
		{"speaker":"Speaker 2","text":"I have the numbers ready."},
		{"speaker":"Speaker 1","text":"Great."}]}`
	n := NewNormalizer(fakeModel(content, 2, nil))

	resp, err := n.Diarize(context.Background(), Request{Transcript: "Good morning everyone, shall we start? Yes. I have the numbers ready. Great."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CostCents != 2 || resp.NumSpeakers != 2 || resp.Model != "fake-1" {
		t.Errorf("unexpected response %+v", resp)
	}
	want := []transcription.Segment{
		{Speaker: "Speaker A", Start: 0, End: 2.4, Text: "Good morning everyone, shall we start?"},
		{Speaker: "Speaker B", Start: 2.4, End: 4.8, Text: "Yes. I have the numbers ready."},
		{Speaker: "Speaker A", Start: 4.8, End: 5.2, Text: "Great."},
	}
	if len(resp.Segments) != len(want) {
		t.Fatalf("got %d segments, want %d: %+v", len(resp.Segments), len(want), resp.Segments)
	}
	for i := range want {
		got := resp.Segments[i]
		if got.Speaker != want[i].Speaker || got.Text != want[i].Text ||
			!near(got.Start, want[i].Start) || !near(got.End, want[i].End) {
			t.Errorf("segment %d = %+v, want %+v", i, got, want[i])
		}
	}
}

func TestDiarize_ScalesToDuration(t *testing.T) {
	content := `{"segments":[{"speaker":"a","text":"one two three four five"},{"speaker":"b","text":"six seven eight nine ten"}]}`
	resp, err := NewNormalizer(fakeModel(content, 1, nil)).Diarize(context.Background(),
		Request{Transcript: "one two three four five six seven eight nine ten", Duration: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := resp.Segments[len(resp.Segments)-1]
	if !near(last.End, 2) || !near(resp.Segments[1].Start, 1) {
		t.Errorf("timings not scaled into the audio duration: %+v", resp.Segments)
	}
}

func TestDiarize_LongTranscriptKeepsRemainder(t *testing.T) {
	transcript := strings.Repeat("word ", 3000) + "tail end of the meeting"
	var prompt string
	content := `{"segments":[{"speaker":"Speaker 1","text":"word word"},{"speaker":"Speaker 2","text":"word"}]}`

	resp, err := NewNormalizer(fakeModel(content, 4, &prompt)).Diarize(context.Background(), Request{Transcript: transcript})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len([]rune(prompt)) > MaxExcerpt+len("Transcript:\n") {
		t.Errorf("prompt exceeds excerpt limit: %d chars", len(prompt))
	}
	last := resp.Segments[len(resp.Segments)-1]
	if last.Speaker != "" || !strings.HasSuffix(last.Text, "tail end of the meeting") {
		t.Errorf("remainder must be a trailing unlabeled segment, got %+v", last)
	}
}

func TestDiarize_Failures(t *testing.T) {
	tests := []struct {
		name    string
		client  llm.Client
		wantErr error
		cost    int
	}{
		{"unparseable", fakeModel("I cannot help with that", 1, nil), nil, 1},
		{"empty segments", fakeModel(`{"segments":[]}`, 1, nil), ErrNoSegments, 1},
		{"model error", provider.NewFunc("down", func(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
			return llm.CompletionResponse{}, errors.New("connection refused")
		}), nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := NewNormalizer(tt.client).Diarize(context.Background(), Request{Transcript: "hello there"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if resp == nil || resp.CostCents != tt.cost {
				t.Errorf("cost not reported on failure: %+v", resp)
			}
		})
	}
}

func TestDiarize_EmptyTranscript(t *testing.T) {
	_, err := NewNormalizer(fakeModel(`{}`, 1, nil)).Diarize(context.Background(), Request{Transcript: "  "})
	if !errors.Is(err, ErrNoSegments) {
		t.Fatalf("expected ErrNoSegments, got %v", err)
	}
}

func TestSplitExcerpt(t *testing.T) {
	excerpt, rest := splitExcerpt("alpha beta gamma", 8)
	if excerpt != "alpha" || rest != "beta gamma" {
		t.Errorf("got %q / %q", excerpt, rest)
	}
	excerpt, rest = splitExcerpt("short", 8)
	if excerpt != "short" || rest != "" {
		t.Errorf("got %q / %q", excerpt, rest)
	}
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
