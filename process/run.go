package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// Run executes cmd and waits for it. On cancellation the process group gets
// SIGTERM, then SIGKILL once GracePeriod has passed. A non-zero exit is
// returned as *ExitError together with the partial Result.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.New("process: binary is required")
	}
	grace := cmd.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}
	limit := cmd.StderrLimit
	if limit <= 0 {
		limit = DefaultStderrLimit
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // arguments are built inside this module
	var stdout bytes.Buffer
	stderr := &tailBuffer{limit: limit}
	c.Stdout = &stdout
	c.Stderr = stderr
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.buf,
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, fmt.Errorf("process: %s stopped: %w", filepath.Base(cmd.Binary), ctx.Err())
	case c.ProcessState == nil:
		// never started: missing binary, permissions
		return res, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	default:
		return res, &ExitError{Binary: filepath.Base(cmd.Binary), ExitCode: res.ExitCode, Detail: res.StderrTail(3)}
	}
}

// Installed reports whether binary resolves on PATH.
func Installed(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}
