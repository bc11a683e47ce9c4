package process_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/meetscribe/process"
)

func TestRun_Stdout(t *testing.T) {
	res, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", `printf '{"format":{"duration":"12.5"}}'`},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode)
	}
	if got := string(res.Stdout); got != `{"format":{"duration":"12.5"}}` {
		t.Fatalf("unexpected stdout %q", got)
	}
}

func TestRun_ExitError(t *testing.T) {
	res, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo 'size=1kB time=00:00:01' >&2; echo 'in.wav: Invalid data found when processing input' >&2; exit 1"},
	})
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.ExitCode != 1 || res.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d / %d", exitErr.ExitCode, res.ExitCode)
	}
	if exitErr.Binary != "sh" {
		t.Errorf("expected binary sh, got %q", exitErr.Binary)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("expected stderr detail in error, got %v", err)
	}
}

func TestRun_StderrLimit(t *testing.T) {
	res, err := process.Run(context.Background(), process.Command{
		Binary:      "sh",
		Args:        []string{"-c", "i=0; while [ $i -lt 200 ]; do echo frame=$i >&2; i=$((i+1)); done"},
		StderrLimit: 32,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stderr) > 32 {
		t.Fatalf("expected at most 32 bytes of stderr, got %d", len(res.Stderr))
	}
	if !strings.HasSuffix(string(res.Stderr), "frame=199\n") {
		t.Errorf("expected the tail to be kept, got %q", res.Stderr)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := process.Run(ctx, process.Command{
		Binary:      "sleep",
		Args:        []string{"10"},
		GracePeriod: 500 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if res.Duration > 5*time.Second {
		t.Fatalf("process took too long to stop: %v", res.Duration)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	if _, err := process.Run(context.Background(), process.Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
	_, err := process.Run(context.Background(), process.Command{Binary: "definitely-not-ffmpeg-xyz"})
	var exitErr *process.ExitError
	if err == nil || errors.As(err, &exitErr) {
		t.Fatalf("expected a start error, got %v", err)
	}
}

func TestStderrTail(t *testing.T) {
	r := &process.Result{Stderr: []byte("a\n\nb\nc\n  \nd\n")}
	if got := r.StderrTail(2); got != "c\nd" {
		t.Fatalf("expected last two lines, got %q", got)
	}
	var nilResult *process.Result
	if nilResult.StderrTail(2) != "" {
		t.Fatal("expected empty tail for nil result")
	}
}

func TestInstalled(t *testing.T) {
	if !process.Installed("sh") {
		t.Fatal("expected sh to be installed")
	}
	if process.Installed("definitely-not-a-real-binary-xyz") {
		t.Fatal("expected missing binary to report false")
	}
}
