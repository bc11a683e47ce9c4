package llm

import (
	"time"

	"github.com/kbukum/meetscribe/validation"
)

// Config configures an Adapter.
type Config struct {
	// Name identifies the adapter in logs and the call log, e.g. "speaker-primary".
	Name string `yaml:"name" mapstructure:"name"`
	// Dialect selects the wire format: "openai" or "gemini".
	Dialect string `yaml:"dialect" mapstructure:"dialect"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
	// APIKey is usually injected from the credential provider rather than
	// config files. An empty key makes the adapter unavailable.
	APIKey      string        `yaml:"-" mapstructure:"api_key"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxAttempts enables retry of transient failures when above 1.
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	Pricing     Pricing `yaml:"pricing" mapstructure:"pricing"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Name == "" && c.Dialect != "" {
		c.Name = c.Dialect + "-llm"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		Required("base_url", c.BaseURL).
		Required("model", c.Model).
		OneOf("dialect", c.Dialect, []string{"openai", "gemini"}).
		Custom(c.Pricing.InputPerMillion >= 0 && c.Pricing.OutputPerMillion >= 0, "pricing", "must not be negative").
		Validate()
}
