package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/transcription"
)

// fakeTools writes outputs of fixed sizes instead of running ffmpeg.
type fakeTools struct {
	duration    float64
	durationErr error
	cropSize    int
	cropErr     error
	compressed  int
	compressErr error

	bitrate int
	crops   int
}

func (f *fakeTools) Duration(context.Context, string) (float64, error) {
	return f.duration, f.durationErr
}

func (f *fakeTools) CropSilence(_ context.Context, _, out string, _ float64) error {
	f.crops++
	if f.cropErr != nil {
		return f.cropErr
	}
	return os.WriteFile(out, make([]byte, f.cropSize), 0o600)
}

func (f *fakeTools) Compress(_ context.Context, _, out string, bitrate int) error {
	f.bitrate = bitrate
	if f.compressErr != nil {
		return f.compressErr
	}
	return os.WriteFile(out, make([]byte, f.compressed), 0o600)
}

func writeFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.m4a")
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newPre(t *testing.T, tools Toolchain) *Preprocessor {
	return New(tools, Config{TempDir: t.TempDir()})
}

var small = transcription.Descriptor{ID: "openai", MaxFileSize: 1000}

func TestPrepare_FitsUntouched(t *testing.T) {
	tools := &fakeTools{}
	path := writeFile(t, 800)
	out, err := newPre(t, tools).Prepare(context.Background(), path, small, transcription.Options{AutoCompress: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Path != path || out.Compressed || out.SilenceCropped || out.SizeBytes != 800 {
		t.Errorf("unexpected outcome %+v", out)
	}
	if err := out.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("cleanup must not remove the input file")
	}
}

func TestPrepare_Compresses(t *testing.T) {
	tools := &fakeTools{duration: 60, compressed: 700}
	path := writeFile(t, 5000)
	out, err := newPre(t, tools).Prepare(context.Background(), path, small, transcription.Options{AutoCompress: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Compressed || out.Path == path || out.SizeBytes != 700 {
		t.Errorf("unexpected outcome %+v", out)
	}
	if tools.bitrate != 16 {
		t.Errorf("expected bitrate clamped to 16, got %d", tools.bitrate)
	}
	compressed := out.Path
	if err := out.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(compressed); !os.IsNotExist(err) {
		t.Error("expected compressed temp file to be removed")
	}
}

func TestPrepare_StillTooLarge(t *testing.T) {
	tools := &fakeTools{duration: 60, compressed: 1500}
	_, err := newPre(t, tools).Prepare(context.Background(), writeFile(t, 5000), small, transcription.Options{AutoCompress: true})
	if !goerrors.HasCode(err, goerrors.ErrCodeFileTooLarge) {
		t.Fatalf("expected FILE_TOO_LARGE, got %v", err)
	}
}

func TestPrepare_NoAutoCompress(t *testing.T) {
	tools := &fakeTools{}
	_, err := newPre(t, tools).Prepare(context.Background(), writeFile(t, 5000), small, transcription.Options{})
	if !goerrors.HasCode(err, goerrors.ErrCodeFileTooLarge) {
		t.Fatalf("expected FILE_TOO_LARGE, got %v", err)
	}
	if tools.bitrate != 0 {
		t.Error("compression must not run when auto-compress is off")
	}
}

func TestPrepare_CompressionFailures(t *testing.T) {
	tests := []struct {
		name  string
		tools *fakeTools
	}{
		{"probe fails", &fakeTools{durationErr: errors.New("no ffprobe")}},
		{"zero duration", &fakeTools{}},
		{"encoder fails", &fakeTools{duration: 30, compressErr: errors.New("exit 1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPre(t, tt.tools).Prepare(context.Background(), writeFile(t, 5000), small, transcription.Options{AutoCompress: true})
			if !goerrors.HasCode(err, goerrors.ErrCodeCompressionFailed) {
				t.Fatalf("expected COMPRESSION_FAILED, got %v", err)
			}
		})
	}
}

func TestPrepare_CropSilence(t *testing.T) {
	tools := &fakeTools{cropSize: 900}
	out, err := newPre(t, tools).Prepare(context.Background(), writeFile(t, 5000), small,
		transcription.Options{CropSilence: true, MinSilenceSeconds: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.SilenceCropped || out.Compressed || out.SizeBytes != 900 {
		t.Errorf("unexpected outcome %+v", out)
	}
	_ = out.Cleanup()
}

func TestPrepare_CropFailureIsNotFatal(t *testing.T) {
	tools := &fakeTools{cropErr: errors.New("filter error")}
	path := writeFile(t, 500)
	out, err := newPre(t, tools).Prepare(context.Background(), path, small,
		transcription.Options{CropSilence: true, MinSilenceSeconds: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SilenceCropped || out.Path != path || tools.crops != 1 {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestPrepare_CropNeedsThreshold(t *testing.T) {
	tools := &fakeTools{cropSize: 10}
	out, err := newPre(t, tools).Prepare(context.Background(), writeFile(t, 500), small, transcription.Options{CropSilence: true})
	if err != nil {
		t.Fatal(err)
	}
	if tools.crops != 0 || out.SilenceCropped {
		t.Error("crop must not run without a threshold")
	}
}

func TestPrepare_MissingFile(t *testing.T) {
	_, err := newPre(t, &fakeTools{}).Prepare(context.Background(), "/nope/x.m4a", small, transcription.Options{})
	if !goerrors.HasCode(err, goerrors.ErrCodeFileNotFound) {
		t.Fatalf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestBitrate(t *testing.T) {
	tests := []struct {
		maxBytes int64
		duration float64
		want     int
	}{
		{25 * 1024 * 1024, 3600, 52},
		{25 * 1024 * 1024, 600, 64},
		{25 * 1024 * 1024, 4 * 3600, 16},
		{25 * 1024 * 1024, 0, 16},
	}
	for _, tt := range tests {
		if got := Bitrate(tt.maxBytes, tt.duration, 0.9, 16, 64); got != tt.want {
			t.Errorf("Bitrate(%d, %v) = %d, want %d", tt.maxBytes, tt.duration, got, tt.want)
		}
	}
}
