package config

import (
	"fmt"
	"net"
	"strings"
)

var (
	validBackends    = map[string]bool{"pulse": true, "portaudio": true}
	validPolicies    = map[string]bool{"drop_oldest": true, "drop_newest": true}
	validLanguages   = map[string]bool{"en": true, "uk": true}
	validLogLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validDeviceRates = map[int]bool{8000: true, 11025: true, 16000: true, 22050: true, 32000: true, 44100: true, 48000: true, 96000: true}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	backend := strings.ToLower(strings.TrimSpace(cfg.Audio.Backend))
	if !validBackends[backend] {
		return nil, fmt.Errorf("audio.backend must be one of: pulse, portaudio")
	}
	if !validDeviceRates[cfg.Audio.SampleRate] {
		return nil, fmt.Errorf("audio.sample_rate %d is not a supported device rate", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels < 1 || cfg.Audio.Channels > 8 {
		return nil, fmt.Errorf("audio.channels must be between 1 and 8")
	}
	if cfg.Audio.ChunkMS < 5 || cfg.Audio.ChunkMS > 500 {
		return nil, fmt.Errorf("audio.chunk_ms must be between 5 and 500")
	}
	if cfg.Audio.QueueSize <= 0 {
		return nil, fmt.Errorf("audio.queue_size must be > 0")
	}
	if !validPolicies[cfg.Audio.DropPolicy] {
		return nil, fmt.Errorf("audio.drop_policy must be one of: drop_oldest, drop_newest")
	}
	if backend == "portaudio" && strings.TrimSpace(cfg.Audio.Input) != "" && cfg.Audio.Input != "default" {
		warnings = append(warnings, Warning{Message: "audio.input is ignored by the portaudio backend; the default input device is used"})
	}

	if err := cfg.Conditioner.DSP().Validate(); err != nil {
		return nil, fmt.Errorf("conditioner: %w", err)
	}

	if strings.TrimSpace(cfg.Recognizer.ModelPath) == "" {
		return nil, fmt.Errorf("recognizer.model_path must not be empty")
	}
	if strings.TrimSpace(cfg.Recognizer.Language) == "" {
		return nil, fmt.Errorf("recognizer.language must not be empty")
	}
	if cfg.Recognizer.Threads < 0 {
		return nil, fmt.Errorf("recognizer.threads must be >= 0")
	}
	if cfg.Recognizer.VADMode < 0 || cfg.Recognizer.VADMode > 3 {
		return nil, fmt.Errorf("recognizer.vad_mode must be between 0 and 3")
	}
	if cfg.Recognizer.SilenceMS <= 0 {
		return nil, fmt.Errorf("recognizer.silence_ms must be > 0")
	}
	if cfg.Recognizer.MaxUtteranceMS <= cfg.Recognizer.SilenceMS {
		return nil, fmt.Errorf("recognizer.max_utterance_ms must be greater than recognizer.silence_ms")
	}

	if cfg.Wake.WindowMS <= 0 {
		return nil, fmt.Errorf("wake.window_ms must be > 0")
	}

	lang := strings.ToLower(strings.TrimSpace(cfg.Commands.Language))
	if !validLanguages[lang] {
		return nil, fmt.Errorf("commands.language must be one of: en, uk")
	}
	if cfg.Commands.FuzzyThreshold <= 0 || cfg.Commands.FuzzyThreshold > 1 {
		return nil, fmt.Errorf("commands.fuzzy_threshold must be in (0,1]")
	}
	if cfg.Commands.FuzzyThreshold < 0.7 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("commands.fuzzy_threshold %.2f is low; unrelated words may match commands", cfg.Commands.FuzzyThreshold)})
	}
	if !strings.EqualFold(cfg.Recognizer.Language, lang) && cfg.Recognizer.Language != "auto" {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("recognizer.language %q differs from commands.language %q", cfg.Recognizer.Language, lang)})
	}

	for name, cmd := range map[string]CommandConfig{
		"dispatch.terminal":       cfg.Dispatch.Terminal,
		"dispatch.screenshot":     cfg.Dispatch.Screenshot,
		"dispatch.night_light":    cfg.Dispatch.NightLight,
		"dispatch.do_not_disturb": cfg.Dispatch.DoNotDisturb,
	} {
		if len(cmd.Argv) == 0 {
			return nil, fmt.Errorf("%s must not be empty", name)
		}
	}
	if strings.Count(cfg.Dispatch.SearchURL, "%s") != 1 {
		return nil, fmt.Errorf("dispatch.search_url must contain exactly one %%s placeholder")
	}

	indicatorBackend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if indicatorBackend != "hypr" && indicatorBackend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if indicatorBackend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("metrics.listen: %w", err)
		}
	}

	if !validLogLevels[strings.ToLower(strings.TrimSpace(cfg.Log.Level))] {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}
