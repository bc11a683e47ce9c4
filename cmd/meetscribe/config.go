package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/meetscribe/audio"
	"github.com/kbukum/meetscribe/config"
	"github.com/kbukum/meetscribe/database"
	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/observability"
	"github.com/kbukum/meetscribe/server"
	"github.com/kbukum/meetscribe/transcription/assemblyai"
	"github.com/kbukum/meetscribe/transcription/deepgram"
	"github.com/kbukum/meetscribe/transcription/gemini"
	"github.com/kbukum/meetscribe/transcription/openai"
	"github.com/kbukum/meetscribe/version"
)

// Config is the application configuration. API keys are not read from here;
// they come from the credential provider.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Credentials CredentialsConfig    `yaml:"credentials" mapstructure:"credentials"`
	Backends    BackendsConfig       `yaml:"backends" mapstructure:"backends"`
	LLM         LLMConfig            `yaml:"llm" mapstructure:"llm"`
	Audio       audio.Config         `yaml:"audio" mapstructure:"audio"`
	FFmpeg      audio.FFmpegConfig   `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	Pipeline    PipelineConfig       `yaml:"pipeline" mapstructure:"pipeline"`
	Database    database.Config      `yaml:"database" mapstructure:"database"`
	Server      server.Config        `yaml:"server" mapstructure:"server"`
	Tracing     observability.Config `yaml:"tracing" mapstructure:"tracing"`
}

// CredentialsConfig locates the encrypted key vault. The passphrase is read
// from MEETSCRIBE_VAULT_PASSPHRASE and never from config files.
type CredentialsConfig struct {
	VaultPath string `yaml:"vault_path" mapstructure:"vault_path"`
}

// BackendsConfig holds per-backend settings.
type BackendsConfig struct {
	AssemblyAI assemblyai.Config `yaml:"assemblyai" mapstructure:"assemblyai"`
	Deepgram   deepgram.Config   `yaml:"deepgram" mapstructure:"deepgram"`
	OpenAI     openai.Config     `yaml:"openai" mapstructure:"openai"`
	Gemini     gemini.Config     `yaml:"gemini" mapstructure:"gemini"`
}

// LLMConfig configures the models behind diarization, quality, titles and
// speaker identification. Fallback is only used for speaker identification.
type LLMConfig struct {
	Primary  llm.Config `yaml:"primary" mapstructure:"primary"`
	Fallback llm.Config `yaml:"fallback" mapstructure:"fallback"`
}

// PipelineConfig bounds concurrent transcriptions.
type PipelineConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxWait       time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	// CallHistory is how many call-log entries are kept in memory when the
	// database is disabled.
	CallHistory int `yaml:"call_history" mapstructure:"call_history"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()

	p := &c.LLM.Primary
	if p.Dialect == "" {
		p.Dialect = "openai"
	}
	if p.BaseURL == "" {
		p.BaseURL = "https://api.openai.com"
	}
	if p.Model == "" {
		p.Model = "gpt-4o-mini"
		p.Pricing = llm.Pricing{InputPerMillion: 0.15, OutputPerMillion: 0.60}
	}
	if p.Name == "" {
		p.Name = "llm-primary"
	}
	f := &c.LLM.Fallback
	if f.Dialect == "" {
		f.Dialect = "gemini"
	}
	if f.BaseURL == "" {
		f.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if f.Model == "" {
		f.Model = "gemini-2.5-flash"
		f.Pricing = llm.Pricing{InputPerMillion: 0.30, OutputPerMillion: 2.50}
	}
	if f.Name == "" {
		f.Name = "llm-fallback"
	}

	if c.Credentials.VaultPath == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Credentials.VaultPath = filepath.Join(dir, serviceName, "vault.json")
		} else {
			c.Credentials.VaultPath = "vault.json"
		}
	}

	if c.Pipeline.MaxConcurrent == 0 {
		c.Pipeline.MaxConcurrent = 4
	}
	if c.Pipeline.MaxWait == 0 {
		c.Pipeline.MaxWait = 5 * time.Minute
	}
	if c.Pipeline.CallHistory == 0 {
		c.Pipeline.CallHistory = 500
	}

	c.Audio.ApplyDefaults()
	c.FFmpeg.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Tracing.ApplyDefaults()
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = version.Version
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = c.Environment
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Primary.Validate(); err != nil {
		return fmt.Errorf("llm.primary: %w", err)
	}
	if err := c.LLM.Fallback.Validate(); err != nil {
		return fmt.Errorf("llm.fallback: %w", err)
	}
	if c.Pipeline.MaxConcurrent < 0 {
		return fmt.Errorf("pipeline.max_concurrent must be non-negative")
	}
	if c.Database.Enabled {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return nil
}
