package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Runner starts external programs.
type Runner interface {
	// Spawn starts program detached and reports whether it started.
	Spawn(ctx context.Context, program string, args ...string) bool
	// Output runs program to completion and returns its trimmed stdout.
	Output(ctx context.Context, program string, args ...string) (string, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// OutputTimeout bounds Output calls. Zero means two seconds.
	OutputTimeout time.Duration
	Logger        *slog.Logger
}

var _ Runner = ExecRunner{}

// Spawn starts program in its own process group and reaps it in the background.
// Spawned programs outlive ctx.
func (r ExecRunner) Spawn(ctx context.Context, program string, args ...string) bool {
	if ctx.Err() != nil {
		return false
	}

	cmd := exec.Command(program, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		if r.Logger != nil {
			r.Logger.Debug("spawn failed", "program", program, "error", err.Error())
		}
		return false
	}

	go func() {
		if err := cmd.Wait(); err != nil && r.Logger != nil {
			r.Logger.Debug("spawned program exited with error", "program", program, "error", err.Error())
		}
	}()
	return true
}

// Output runs program and returns stdout with surrounding whitespace removed.
func (r ExecRunner) Output(ctx context.Context, program string, args ...string) (string, error) {
	if program == "" {
		return "", errors.New("command argv cannot be empty")
	}

	timeout := r.OutputTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, program, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("run %s: %w: %s", program, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("run %s: %w", program, err)
	}
	return strings.TrimSpace(string(out)), nil
}
