// Package app dispatches parsed CLI commands onto the aurora runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/aurora/internal/audio"
	"github.com/rbright/aurora/internal/cli"
	"github.com/rbright/aurora/internal/config"
	"github.com/rbright/aurora/internal/doctor"
	"github.com/rbright/aurora/internal/ipc"
	"github.com/rbright/aurora/internal/logging"
	"github.com/rbright/aurora/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute runs one CLI invocation and returns the process exit code.
// Parse errors exit 2; runtime errors exit 1.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("aurora"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("aurora"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config.Audio)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandArm:
		return r.forwardOrFail(ctx, ipc.CommandArm)
	case cli.CommandDisarm:
		return r.forwardOrFail(ctx, ipc.CommandDisarm)
	case cli.CommandText:
		return r.commandText(ctx, cfgLoaded.Config, parsed.Direct, logger)
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context, cfg config.AudioConfig) int {
	var (
		devices []audio.Device
		err     error
	)
	if cfg.Backend == "portaudio" {
		devices, err = audio.ListPortAudioDevices()
	} else {
		devices, err = audio.ListDevices(ctx)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, describeState(resp, time.Now()))
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no running aurora listener")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, describeState(resp, time.Now()))
	return 0
}

// describeState renders a status reply, with the time left when armed.
func describeState(resp ipc.Response, now time.Time) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	if resp.Deadline.IsZero() {
		return state
	}
	left := max(resp.Deadline.Sub(now), 0)
	return fmt.Sprintf("%s (%.1fs left)", state, left.Seconds())
}

// tryForward reports handled=false when no listener owns the socket.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err != nil {
		if errors.Is(err, ipc.ErrNotRunning) {
			return ipc.Response{}, false, nil
		}
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
	}
	return resp, true, resp.Err()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
