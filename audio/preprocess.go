package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/transcription"
)

const bytesPerMB = 1024 * 1024

// Config configures the preprocessor.
type Config struct {
	// TempDir holds intermediate files. Empty uses os.TempDir.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
	// TargetRatio is the share of the backend limit compression aims for.
	TargetRatio    float64 `yaml:"target_ratio" mapstructure:"target_ratio"`
	MinBitrateKbps int     `yaml:"min_bitrate_kbps" mapstructure:"min_bitrate_kbps"`
	MaxBitrateKbps int     `yaml:"max_bitrate_kbps" mapstructure:"max_bitrate_kbps"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.TargetRatio <= 0 || c.TargetRatio > 1 {
		c.TargetRatio = 0.9
	}
	if c.MinBitrateKbps <= 0 {
		c.MinBitrateKbps = 16
	}
	if c.MaxBitrateKbps <= 0 {
		c.MaxBitrateKbps = 64
	}
}

// Outcome is the file to dispatch and what was done to produce it.
type Outcome struct {
	Path           string `json:"path"`
	SilenceCropped bool   `json:"silence_cropped"`
	Compressed     bool   `json:"compressed"`
	SizeBytes      int64  `json:"size_bytes"`

	temps []string
}

// Cleanup removes intermediate files. The caller's input file is never
// removed.
func (o *Outcome) Cleanup() error {
	if o == nil {
		return nil
	}
	var errs []error
	for _, p := range o.temps {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	o.temps = nil
	return errors.Join(errs...)
}

// Preprocessor crops silence and enforces backend size limits.
type Preprocessor struct {
	tools Toolchain
	cfg   Config
	log   *logger.Logger
}

// New creates a preprocessor over tools.
func New(tools Toolchain, cfg Config) *Preprocessor {
	cfg.ApplyDefaults()
	return &Preprocessor{tools: tools, cfg: cfg, log: logger.Get("audio")}
}

// Prepare makes path fit the backend described by desc. Silence cropping is
// best effort. An oversized file is compressed once, at a bitrate aimed at
// TargetRatio of the limit, when opts.AutoCompress is set; a file that is
// still too large fails with FileTooLarge. The returned outcome never exceeds
// desc.MaxFileSize.
func (p *Preprocessor) Prepare(ctx context.Context, path string, desc transcription.Descriptor, opts transcription.Options) (*Outcome, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, goerrors.FileNotFound(path)
	}
	out := &Outcome{Path: path, SizeBytes: info.Size()}
	log := p.log.WithContext(ctx)

	if opts.CropSilence && opts.MinSilenceSeconds > 0 {
		p.crop(ctx, out, opts.MinSilenceSeconds)
	}

	if desc.Fits(out.SizeBytes) {
		return out, nil
	}
	sizeMB := float64(out.SizeBytes) / bytesPerMB
	if !opts.AutoCompress {
		_ = out.Cleanup()
		return nil, goerrors.FileTooLarge(sizeMB, desc.ID)
	}

	duration, err := p.tools.Duration(ctx, out.Path)
	if err != nil || duration <= 0 {
		_ = out.Cleanup()
		return nil, goerrors.CompressionFailed("could not determine audio duration").WithCause(err)
	}
	bitrate := Bitrate(desc.MaxFileSize, duration, p.cfg.TargetRatio, p.cfg.MinBitrateKbps, p.cfg.MaxBitrateKbps)

	target, err := p.tempFile(".m4a")
	if err != nil {
		_ = out.Cleanup()
		return nil, goerrors.CompressionFailed("create temp file").WithCause(err)
	}
	out.temps = append(out.temps, target)

	log.Info("compressing audio", logger.Fields(
		logger.FieldBackend, desc.ID, logger.FieldSizeBytes, out.SizeBytes, "bitrate_kbps", bitrate))
	if err := p.tools.Compress(ctx, out.Path, target, bitrate); err != nil {
		_ = out.Cleanup()
		return nil, goerrors.CompressionFailed(err.Error()).WithCause(err)
	}
	info, err = os.Stat(target)
	if err != nil {
		_ = out.Cleanup()
		return nil, goerrors.CompressionFailed("compressed file missing").WithCause(err)
	}
	if !desc.Fits(info.Size()) {
		_ = out.Cleanup()
		return nil, goerrors.FileTooLarge(float64(info.Size())/bytesPerMB, desc.ID).
			WithDetail("compressed", true)
	}

	out.Path, out.SizeBytes, out.Compressed = target, info.Size(), true
	log.Info("audio compressed", logger.Fields(
		logger.FieldBackend, desc.ID, logger.FieldSizeBytes, out.SizeBytes))
	return out, nil
}

// crop replaces out.Path with a silence-cropped copy. Failures leave out
// untouched.
func (p *Preprocessor) crop(ctx context.Context, out *Outcome, minSilence float64) {
	log := p.log.WithContext(ctx)
	target, err := p.tempFile(filepath.Ext(out.Path))
	if err != nil {
		log.Warn("silence crop skipped", logger.ErrorFields("crop_silence", err))
		return
	}
	if err := p.tools.CropSilence(ctx, out.Path, target, minSilence); err != nil {
		_ = os.Remove(target)
		log.Warn("silence crop failed, continuing with original audio", logger.ErrorFields("crop_silence", err))
		return
	}
	info, err := os.Stat(target)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(target)
		log.Warn("silence crop produced no output, continuing with original audio")
		return
	}
	out.temps = append(out.temps, target)
	out.Path, out.SizeBytes, out.SilenceCropped = target, info.Size(), true
}

func (p *Preprocessor) tempFile(ext string) (string, error) {
	if ext == "" {
		ext = ".m4a"
	}
	f, err := os.CreateTemp(p.cfg.TempDir, "meetscribe-*"+ext)
	if err != nil {
		return "", fmt.Errorf("audio: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("audio: %w", err)
	}
	return name, nil
}

// Bitrate returns the AAC bitrate in kbps that makes duration seconds of
// audio occupy ratio of maxBytes, clamped to [minKbps, maxKbps].
func Bitrate(maxBytes int64, duration, ratio float64, minKbps, maxKbps int) int {
	if duration <= 0 {
		return minKbps
	}
	kbps := int(float64(maxBytes) * ratio * 8 / 1000 / duration)
	return max(minKbps, min(kbps, maxKbps))
}
