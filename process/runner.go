package process

import (
	"context"
	"time"

	"github.com/kbukum/meetscribe/provider"
)

var _ provider.RequestResponse[Command, *Result] = (*Runner)(nil)

// Config configures a Runner.
type Config struct {
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// GracePeriod is the default SIGTERM→SIGKILL grace period.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
	// Timeout bounds each run. Zero means no timeout.
	Timeout    time.Duration             `yaml:"timeout,omitempty" mapstructure:"timeout"`
	Resilience provider.ResilienceConfig `yaml:"-" mapstructure:"-"`
}

// Runner executes subprocesses with defaults and persistent resilience state,
// so repeated crashes of the same tool trip its circuit breaker.
type Runner struct {
	cfg   Config
	state *provider.ResilienceState
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg, state: provider.BuildResilience(cfg.Resilience)}
}

// Run executes cmd through the resilience chain.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 {
		cmd.GracePeriod = r.cfg.GracePeriod
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return provider.ExecuteWithResilience(ctx, r.state, func() (*Result, error) {
		return Run(ctx, cmd)
	})
}

func (r *Runner) Name() string { return r.cfg.Name }

func (r *Runner) IsAvailable(_ context.Context) bool { return true }

func (r *Runner) Execute(ctx context.Context, cmd Command) (*Result, error) {
	return r.Run(ctx, cmd)
}
