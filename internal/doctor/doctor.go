// Package doctor runs readiness diagnostics for config, model, audio, dispatch tools, and indicator.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/aurora/internal/audio"
	"github.com/rbright/aurora/internal/command"
	"github.com/rbright/aurora/internal/config"
	"github.com/rbright/aurora/internal/dispatch"
	"github.com/rbright/aurora/internal/hypr"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
	// Optional failures are reported as warnings and do not fail the report.
	Optional bool
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK returns true when every required check passes.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass && !check.Optional {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		switch {
		case !check.Pass && check.Optional:
			status = "WARN"
		case !check.Pass:
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment and runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	}}
	if !cfg.Exists {
		checks[0].Message = fmt.Sprintf("using defaults, %q does not exist", cfg.Path)
	}

	checks = append(checks, checkModel(cfg.Config.Recognizer.ModelPath))
	checks = append(checks, checkVocabulary(cfg.Config.Commands.VocabularyFile))
	checks = append(checks, checkAudio(ctx, cfg.Config.Audio))
	checks = append(checks, checkIndicator(ctx, cfg.Config.Indicator)...)

	for _, bin := range dispatch.ProgramsFromConfig(cfg.Config.Dispatch).Binaries() {
		check := checkBinary(bin, "dispatch target")
		check.Optional = true
		checks = append(checks, check)
	}

	return Report{Checks: checks}
}

func checkModel(path string) Check {
	const name = "recognizer.model"
	if strings.TrimSpace(path) == "" {
		return Check{Name: name, Pass: false, Message: "recognizer.model_path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("model not readable: %v", err)}
	}
	if info.IsDir() || info.Size() == 0 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a model file", path)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s (%d MiB)", path, info.Size()>>20)}
}

func checkVocabulary(path string) Check {
	const name = "commands.vocabulary"
	if strings.TrimSpace(path) == "" {
		return Check{Name: name, Pass: true, Message: "built-in vocabulary"}
	}
	if _, err := command.LoadVocabulary(path); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("loaded %q", path)}
}

func checkAudio(ctx context.Context, cfg config.AudioConfig) Check {
	if cfg.Backend == "portaudio" {
		devices, err := audio.ListPortAudioDevices()
		if err != nil {
			return Check{Name: "audio.device", Pass: false, Message: err.Error()}
		}
		if len(devices) == 0 {
			return Check{Name: "audio.device", Pass: false, Message: "portaudio reports no input devices"}
		}
		return Check{Name: "audio.device", Pass: true, Message: fmt.Sprintf("%d portaudio input devices", len(devices))}
	}

	selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkIndicator(ctx context.Context, cfg config.IndicatorConfig) []Check {
	var checks []Check
	if cfg.SoundEnable {
		checks = append(checks, Check{Name: "indicator.sound", Pass: true, Message: "cues enabled"})
		for _, file := range []string{cfg.SoundWakeFile, cfg.SoundDispatchFile, cfg.SoundTimeoutFile, cfg.SoundErrorFile} {
			if file == "" {
				continue
			}
			if _, err := os.Stat(file); err != nil {
				checks = append(checks, Check{Name: "indicator.sound", Pass: false, Optional: true, Message: fmt.Sprintf("cue file %q unreadable, synthesized tone is used", file)})
			}
		}
	}
	if !cfg.Enable {
		return append(checks, Check{Name: "indicator", Pass: true, Message: "disabled"})
	}

	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "desktop") {
		return append(checks, checkBinary("busctl", "desktop notifications"))
	}

	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) == "" {
		return append(checks, Check{Name: "indicator", Pass: false, Message: "HYPRLAND_INSTANCE_SIGNATURE is empty; set indicator.backend to desktop outside Hyprland"})
	}
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	version, err := hypr.QueryVersion(probeCtx)
	if err != nil {
		return append(checks, Check{Name: "indicator", Pass: false, Message: err.Error()})
	}
	return append(checks, Check{Name: "indicator", Pass: true, Message: fmt.Sprintf("hyprland %s", version.Tag)})
}

func checkBinary(bin string, purpose string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s (%s)", bin, purpose)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, purpose)}
}
