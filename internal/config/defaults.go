package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	terminal := "ghostty"
	screenshot := "spectacle"
	nightLight := "pkill -USR1 gammastep"
	dnd := "makoctl mode -t do-not-disturb"

	return Config{
		Audio: AudioConfig{
			Backend:    "pulse",
			Input:      "default",
			Fallback:   "default",
			SampleRate: 48000,
			Channels:   2,
			ChunkMS:    20,
			QueueSize:  128,
			DropPolicy: "drop_oldest",
		},
		Conditioner: ConditionerConfig{
			DCAlpha:       0.999,
			TargetRMS:     0.12,
			MaxGain:       8.0,
			Smoothing:     0.95,
			ClipThreshold: 0.95,
			MinRMS:        0.008,
		},
		Recognizer: RecognizerConfig{
			ModelPath:      "~/.local/share/aurora/models/ggml-base.bin",
			Language:       "en",
			Threads:        0,
			VADMode:        2,
			SilenceMS:      600,
			MaxUtteranceMS: 8000,
		},
		Wake: WakeConfig{
			WindowMS: 6000,
		},
		Commands: CommandsConfig{
			Language:       "en",
			FuzzyThreshold: 0.85,
		},
		Dispatch: DispatchConfig{
			Terminal:     CommandConfig{Raw: terminal, Argv: mustParseArgv(terminal)},
			Screenshot:   CommandConfig{Raw: screenshot, Argv: mustParseArgv(screenshot)},
			NightLight:   CommandConfig{Raw: nightLight, Argv: mustParseArgv(nightLight)},
			DoNotDisturb: CommandConfig{Raw: dnd, Argv: mustParseArgv(dnd)},
			SearchURL:    "https://www.google.com/search?q=%s",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "aurora-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Log: LogConfig{Level: "info"},
	}
}
