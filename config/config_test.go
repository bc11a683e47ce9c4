package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/meetscribe/logger"
)

type testBackend struct {
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Backends      struct {
		OpenAI testBackend `mapstructure:"openai"`
	} `mapstructure:"backends"`
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "svc"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" {
		t.Errorf("expected 'development', got %q", cfg.Environment)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults, got %+v", cfg.Logging)
	}

	debug := ServiceConfig{Name: "svc", Debug: true}
	debug.ApplyDefaults()
	if debug.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", debug.Logging.Level)
	}

	explicit := ServiceConfig{Name: "svc", Debug: true, Logging: logger.Config{Level: "warn"}}
	explicit.ApplyDefaults()
	if explicit.Logging.Level != "warn" {
		t.Errorf("explicit level must win over debug, got %q", explicit.Logging.Level)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "name: is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "environment: must be one of"},
		{"bad logging", ServiceConfig{Name: "svc", Environment: "production", Logging: logger.Config{Level: "loud"}}, "logging:"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
name: meetscribe
environment: staging
backends:
  openai:
    model: whisper-1
    timeout: 90s
`
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TESTSVC_BACKENDS_OPENAI_MODEL", "gpt-4o-transcribe")

	var cfg testConfig
	if err := LoadConfig("testsvc", &cfg, WithSearchPaths(dir)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "meetscribe" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config: %+v", cfg.ServiceConfig)
	}
	if cfg.Backends.OpenAI.Model != "gpt-4o-transcribe" {
		t.Errorf("expected env override, got %q", cfg.Backends.OpenAI.Model)
	}
	if cfg.Backends.OpenAI.Timeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", cfg.Backends.OpenAI.Timeout)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(envPath, []byte("ENVFILETEST_NAME=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ENVFILETEST_NAME") })

	var cfg testConfig
	if err := LoadConfig("envfiletest", &cfg, WithSearchPaths(dir), WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Name)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("svc", &cfg, WithConfigFile(filepath.Join(t.TempDir(), "nope.yml")))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestStructKeys(t *testing.T) {
	var cfg testConfig
	keys := structKeys(reflect.TypeOf(&cfg), "")
	want := map[string]bool{
		"name":                    false,
		"logging.level":           false,
		"backends.openai.model":   false,
		"backends.openai.timeout": false,
	}
	for _, k := range keys {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("expected key %q in %v", k, keys)
		}
	}
}
