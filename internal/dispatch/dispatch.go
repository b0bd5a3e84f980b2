// Package dispatch maps classified commands onto desktop programs.
package dispatch

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/rbright/aurora/internal/command"
	"github.com/rbright/aurora/internal/config"
)

// Result tells the listener whether to keep running after a command.
type Result int

const (
	// ResultRunning keeps the listener running.
	ResultRunning Result = iota
	// ResultEndConversation keeps running but ends a conversation chain.
	ResultEndConversation
	// ResultQuit stops the listener.
	ResultQuit
)

func (r Result) String() string {
	switch r {
	case ResultRunning:
		return "running"
	case ResultEndConversation:
		return "end_conversation"
	case ResultQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Programs holds the configurable argv for commands that are not fixed utilities.
type Programs struct {
	Terminal     []string
	Screenshot   []string
	NightLight   []string
	DoNotDisturb []string
	// SearchURL contains one %s replaced by the query-escaped search text.
	SearchURL string
}

// ProgramsFromConfig builds Programs from the dispatch config section.
func ProgramsFromConfig(cfg config.DispatchConfig) Programs {
	return Programs{
		Terminal:     cfg.Terminal.Argv,
		Screenshot:   cfg.Screenshot.Argv,
		NightLight:   cfg.NightLight.Argv,
		DoNotDisturb: cfg.DoNotDisturb.Argv,
		SearchURL:    cfg.SearchURL,
	}
}

// DefaultPrograms returns Programs for the default config.
func DefaultPrograms() Programs {
	return ProgramsFromConfig(config.Default().Dispatch)
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for unknown commands and launch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithFailureHook registers fn to be called once per command whose side effect could not be started.
func WithFailureHook(fn func(command.Command)) Option {
	return func(d *Dispatcher) {
		d.onFailure = fn
	}
}

// Dispatcher executes commands. Failures are logged and reported but never retried.
type Dispatcher struct {
	runner    Runner
	programs  Programs
	logger    *slog.Logger
	onFailure func(command.Command)
}

// New returns a Dispatcher that starts programs through runner.
func New(runner Runner, programs Programs, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		runner:   runner,
		programs: programs,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes cmd and returns the listener continuation.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) Result {
	if cmd == nil {
		return ResultRunning
	}
	v := &visitor{d: d, ctx: ctx, cmd: cmd, result: ResultRunning}
	cmd.Accept(v)
	if v.failed && d.onFailure != nil {
		d.onFailure(cmd)
	}
	return v.result
}

// spawnFirst tries each argv in order until one starts.
func (v *visitor) spawnFirst(candidates ...[]string) {
	for _, argv := range candidates {
		if len(argv) == 0 {
			continue
		}
		if v.d.runner.Spawn(v.ctx, argv[0], argv[1:]...) {
			return
		}
	}
	v.fail("no candidate program could be started", "candidates", candidateNames(candidates))
}

func (v *visitor) spawn(program string, args ...string) {
	v.spawnFirst(append([]string{program}, args...))
}

func (v *visitor) fail(msg string, attrs ...any) {
	v.failed = true
	attrs = append([]any{"command", command.Describe(v.cmd)}, attrs...)
	v.d.logger.Warn(msg, attrs...)
}

func candidateNames(candidates [][]string) string {
	names := make([]string, 0, len(candidates))
	for _, argv := range candidates {
		if len(argv) > 0 {
			names = append(names, argv[0])
		}
	}
	return strings.Join(names, ",")
}

func searchURL(template string, query string) string {
	return strings.Replace(template, "%s", url.QueryEscape(query), 1)
}

// Binaries lists the first-choice program of every command, in table order, without duplicates.
func (p Programs) Binaries() []string {
	names := []string{"firefox", first(p.Terminal), "dolphin", "obsidian", "steam", "Telegram",
		"wpctl", "brightnessctl", "playerctl", "nmcli", "bluetoothctl",
		first(p.NightLight), first(p.DoNotDisturb), first(p.Screenshot),
		"poweroff", "reboot", "systemctl", "xdg-open"}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func first(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return argv[0]
}
