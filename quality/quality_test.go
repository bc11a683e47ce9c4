package quality

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/provider"
)

const meeting = "Thanks for joining. Today we review the launch plan, the budget for the next quarter " +
	"and the hiring pipeline. Maria will start with the launch timeline and then we go through open questions."

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		text string
		bad  bool
	}{
		{"normal speech", meeting, false},
		{"empty", "   ", true},
		{"lone period", ".", true},
		{"short inaudible", "[inaudible]", true},
		{"long text mentioning inaudible", meeting + " Sorry, the last part was inaudible, can you repeat?", false},
		{"repeated phrase", strings.Repeat("thank you for watching. ", 7), true},
		{"phrase at threshold", strings.Repeat("see you tomorrow ", 5) + meeting, false},
		{"symbols", "$$$ ### @@@ !!! %%% ^^^ &&& *** a b c", true},
		{"annotations", "[Music] (background noise) [silence] ok", true},
		{"some annotations", meeting + " [laughter]", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue, bad := Check(tt.text)
			if bad != tt.bad {
				t.Errorf("Check() = %v (%q), want %v", bad, issue, tt.bad)
			}
			if bad && issue == "" {
				t.Error("expected an issue description")
			}
		})
	}
}

func countingModel(content string, cost int, calls *atomic.Int32) llm.Client {
	return provider.NewFunc("fake", func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		calls.Add(1)
		return llm.CompletionResponse{Content: content, CostCents: cost}, nil
	})
}

func TestValidate_HeuristicHitSkipsModel(t *testing.T) {
	var calls atomic.Int32
	v := New(countingModel(`{"valid":true}`, 1, &calls))

	res := v.Validate(context.Background(), strings.Repeat("subscribe to my channel ", 8))
	if calls.Load() != 0 {
		t.Error("model must not be called after a heuristic hit")
	}
	if res.Valid || !res.Rubbish || res.Confidence != HeuristicConfidence || res.CostCents != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestValidate_Model(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
		rubbish bool
		conf    float64
	}{
		{"valid", `{"valid":true,"rubbish":false,"issue":"","confidence":0.9}`, true, false, 0.9},
		{"rubbish forces invalid", `{"valid":true,"rubbish":true,"issue":"hallucinated","confidence":0.8}`, false, true, 0.8},
		{"confidence clamped", `{"valid":true,"confidence":7}`, true, false, 1},
		{"unparseable falls back", `no idea`, true, false, FallbackConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			res := New(countingModel(tt.content, 2, &calls)).Validate(context.Background(), meeting)
			if calls.Load() != 1 {
				t.Fatalf("expected one model call, got %d", calls.Load())
			}
			if res.Valid != tt.valid || res.Rubbish != tt.rubbish || res.Confidence != tt.conf || res.CostCents != 2 {
				t.Errorf("unexpected result %+v", res)
			}
		})
	}
}

func TestValidate_ModelErrorIsOptimistic(t *testing.T) {
	down := provider.NewFunc("down", func(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, errors.New("503 service unavailable")
	})
	res := New(down).Validate(context.Background(), meeting)
	if !res.Valid || res.Confidence != FallbackConfidence {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestValidate_NoModel(t *testing.T) {
	res := New(nil).Validate(context.Background(), meeting)
	if !res.Valid || res.Confidence != UncheckedConfidence || res.CostCents != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSample(t *testing.T) {
	if got := Sample("short text", 600); got != "short text" {
		t.Errorf("short text must be sent whole, got %q", got)
	}
	long := strings.Repeat("a", 1000) + strings.Repeat("m", 1000) + strings.Repeat("z", 1000)
	got := Sample(long, 600)
	parts := strings.Split(got, "\n...\n")
	if len(parts) != 3 {
		t.Fatalf("expected three parts, got %d", len(parts))
	}
	if parts[0] != strings.Repeat("a", 600) || parts[1] != strings.Repeat("m", 600) || parts[2] != strings.Repeat("z", 600) {
		t.Error("sample must cover beginning, middle and end")
	}
}
