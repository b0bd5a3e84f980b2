// Package logging configures runtime JSONL logging output.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Runtime bundles the configured logger and its open file handle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close closes the log file.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ParseLevel maps debug|info|warn|error onto a slog level. Empty means info.
func ParseLevel(raw string) (slog.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// New opens $XDG_STATE_HOME/aurora/log.jsonl and returns a JSON logger at level.
func New(level string) (Runtime, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return Runtime{}, err
	}

	path, err := resolveLogPath()
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, fmt.Errorf("open log file: %w", err)
	}

	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(h).With("pid", os.Getpid())
	return Runtime{Logger: logger, Path: path, closer: f}, nil
}

func resolveLogPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "aurora", "log.jsonl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "aurora", "log.jsonl"), nil
}
