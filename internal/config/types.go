// Package config resolves, parses, validates, and defaults aurora configuration.
package config

import (
	"strings"
	"time"

	"github.com/rbright/aurora/internal/dsp"
)

// Config is the fully materialized runtime configuration used by aurora.
type Config struct {
	Audio       AudioConfig
	Conditioner ConditionerConfig
	Recognizer  RecognizerConfig
	Wake        WakeConfig
	Commands    CommandsConfig
	Dispatch    DispatchConfig
	Indicator   IndicatorConfig
	Metrics     MetricsConfig
	Debug       DebugConfig
	Log         LogConfig
}

// AudioConfig controls the capture backend and the producer queue.
type AudioConfig struct {
	Backend    string
	Input      string
	Fallback   string
	SampleRate int
	Channels   int
	ChunkMS    int
	QueueSize  int
	DropPolicy string
}

// ConditionerConfig tunes DC removal, AGC, soft clipping and the activity gate.
type ConditionerConfig struct {
	DCAlpha       float64
	TargetRMS     float64
	MaxGain       float64
	Smoothing     float64
	ClipThreshold float64
	MinRMS        float64
}

// DSP converts the section into conditioner settings.
func (c ConditionerConfig) DSP() dsp.ConditionerConfig {
	return dsp.ConditionerConfig{
		DCAlpha:       c.DCAlpha,
		TargetRMS:     c.TargetRMS,
		MaxGain:       c.MaxGain,
		Smoothing:     c.Smoothing,
		ClipThreshold: c.ClipThreshold,
		MinRMS:        c.MinRMS,
	}
}

// RecognizerConfig controls the offline speech recognizer and its endpointing.
type RecognizerConfig struct {
	ModelPath      string
	Language       string
	Threads        int
	VADMode        int
	SilenceMS      int
	MaxUtteranceMS int
}

// WakeConfig controls the wake word and command window.
type WakeConfig struct {
	Word             string
	WindowMS         int
	ConversationMode bool
}

// CommandsConfig controls classification.
type CommandsConfig struct {
	Language       string
	FuzzyThreshold float64
	VocabularyFile string
}

// DispatchConfig overrides the programs run for selected commands.
type DispatchConfig struct {
	Terminal     CommandConfig
	Screenshot   CommandConfig
	NightLight   CommandConfig
	DoNotDisturb CommandConfig
	SearchURL    string
}

// IndicatorConfig controls visual notices and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundWakeFile     string
	SoundDispatchFile string
	SoundTimeoutFile  string
	SoundErrorFile    string
	TextArmed         string
	TextTimeout       string
	TextError         string
	ErrorTimeoutMS    int
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	AudioDumpDir    string
}

// LogConfig controls the runtime logger.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// WakeWord returns the configured wake word, or the default for the command language.
func (c Config) WakeWord() string {
	if w := strings.TrimSpace(c.Wake.Word); w != "" {
		return w
	}
	return DefaultWakeWord(c.Commands.Language)
}

// Window returns the command window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.Wake.WindowMS) * time.Millisecond
}

// DefaultWakeWord returns the wake word for a command language.
func DefaultWakeWord(language string) string {
	if strings.EqualFold(strings.TrimSpace(language), "uk") {
		return "аврора"
	}
	return "aurora"
}
