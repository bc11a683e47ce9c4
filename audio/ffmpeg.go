package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kbukum/meetscribe/process"
	"github.com/kbukum/meetscribe/provider"
)

// Toolchain performs the audio operations the preprocessor needs.
type Toolchain interface {
	// Duration returns the length of the file in seconds.
	Duration(ctx context.Context, path string) (float64, error)
	// CropSilence writes in to out with silences longer than minSilence
	// seconds cut down to the retained buffer.
	CropSilence(ctx context.Context, in, out string, minSilence float64) error
	// Compress writes in to out as mono 16 kHz AAC at bitrateKbps.
	Compress(ctx context.Context, in, out string, bitrateKbps int) error
}

// FFmpegConfig configures the ffmpeg toolchain.
type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" mapstructure:"ffprobe_path"`
	// SilenceThresholdDB is the level below which audio counts as silence.
	SilenceThresholdDB float64 `yaml:"silence_threshold_db" mapstructure:"silence_threshold_db"`
	// RetainSilence is kept around every cut so speech is never clipped.
	RetainSilence time.Duration `yaml:"retain_silence" mapstructure:"retain_silence"`
	// Timeout bounds a single ffmpeg run.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills in zero-value fields.
func (c *FFmpegConfig) ApplyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.SilenceThresholdDB == 0 {
		c.SilenceThresholdDB = -40
	}
	if c.RetainSilence <= 0 {
		c.RetainSilence = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
}

// CommandRunner runs subprocesses. *process.Runner satisfies it.
type CommandRunner = provider.RequestResponse[process.Command, *process.Result]

// FFmpeg implements Toolchain by shelling out to ffmpeg and ffprobe.
type FFmpeg struct {
	cfg    FFmpegConfig
	runner CommandRunner
}

var _ Toolchain = (*FFmpeg)(nil)

// NewFFmpeg creates the toolchain. A nil runner uses a process.Runner bounded
// by cfg.Timeout.
func NewFFmpeg(cfg FFmpegConfig, runner CommandRunner) *FFmpeg {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = process.NewRunner(process.Config{Name: "ffmpeg", Timeout: cfg.Timeout})
	}
	return &FFmpeg{cfg: cfg, runner: runner}
}

// Installed reports whether both binaries resolve on PATH.
func (f *FFmpeg) Installed() bool {
	return process.Installed(f.cfg.FFmpegPath) && process.Installed(f.cfg.FFprobePath)
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration probes the container duration.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	res, err := f.runner.Execute(ctx, process.Command{
		Binary: f.cfg.FFprobePath,
		Args:   []string{"-v", "error", "-print_format", "json", "-show_format", path},
	})
	if err != nil {
		return 0, fmt.Errorf("audio: ffprobe: %w", err)
	}
	var out probeOutput
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		return 0, fmt.Errorf("audio: parse ffprobe output: %w", err)
	}
	d, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("audio: ffprobe reported no duration for %s", path)
	}
	return d, nil
}

// CropSilence removes silences longer than minSilence seconds.
func (f *FFmpeg) CropSilence(ctx context.Context, in, out string, minSilence float64) error {
	filter := fmt.Sprintf(
		"silenceremove=stop_periods=-1:stop_duration=%s:stop_threshold=%sdB:stop_silence=%s",
		formatFloat(minSilence), formatFloat(f.cfg.SilenceThresholdDB), formatFloat(f.cfg.RetainSilence.Seconds()))
	_, err := f.runner.Execute(ctx, process.Command{
		Binary: f.cfg.FFmpegPath,
		Args:   []string{"-y", "-hide_banner", "-loglevel", "error", "-i", in, "-vn", "-af", filter, out},
	})
	if err != nil {
		return fmt.Errorf("audio: crop silence: %w", err)
	}
	return nil
}

// Compress re-encodes to mono 16 kHz AAC.
func (f *FFmpeg) Compress(ctx context.Context, in, out string, bitrateKbps int) error {
	_, err := f.runner.Execute(ctx, process.Command{
		Binary: f.cfg.FFmpegPath,
		Args: []string{
			"-y", "-hide_banner", "-loglevel", "error", "-i", in,
			"-vn", "-ac", "1", "-ar", "16000", "-c:a", "aac", "-b:a", strconv.Itoa(bitrateKbps) + "k",
			out,
		},
	})
	if err != nil {
		return fmt.Errorf("audio: compress: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
