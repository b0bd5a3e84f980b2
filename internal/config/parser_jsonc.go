package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Audio       *jsoncAudio       `json:"audio"`
	Conditioner *jsoncConditioner `json:"conditioner"`
	Recognizer  *jsoncRecognizer  `json:"recognizer"`
	Wake        *jsoncWake        `json:"wake"`
	Commands    *jsoncCommands    `json:"commands"`
	Dispatch    *jsoncDispatch    `json:"dispatch"`
	Indicator   *jsoncIndicator   `json:"indicator"`
	Metrics     *jsoncMetrics     `json:"metrics"`
	Debug       *jsoncDebug       `json:"debug"`
	Log         *jsoncLog         `json:"log"`
}

type jsoncAudio struct {
	Backend    *string `json:"backend"`
	Input      *string `json:"input"`
	Fallback   *string `json:"fallback"`
	SampleRate *int    `json:"sample_rate"`
	Channels   *int    `json:"channels"`
	ChunkMS    *int    `json:"chunk_ms"`
	QueueSize  *int    `json:"queue_size"`
	DropPolicy *string `json:"drop_policy"`
}

type jsoncConditioner struct {
	DCAlpha       *float64 `json:"dc_alpha"`
	TargetRMS     *float64 `json:"target_rms"`
	MaxGain       *float64 `json:"max_gain"`
	Smoothing     *float64 `json:"smoothing"`
	ClipThreshold *float64 `json:"clip_threshold"`
	MinRMS        *float64 `json:"min_rms"`
}

type jsoncRecognizer struct {
	ModelPath      *string `json:"model_path"`
	Language       *string `json:"language"`
	Threads        *int    `json:"threads"`
	VADMode        *int    `json:"vad_mode"`
	SilenceMS      *int    `json:"silence_ms"`
	MaxUtteranceMS *int    `json:"max_utterance_ms"`
}

type jsoncWake struct {
	Word             *string `json:"word"`
	WindowMS         *int    `json:"window_ms"`
	ConversationMode *bool   `json:"conversation_mode"`
}

type jsoncCommands struct {
	Language       *string  `json:"language"`
	FuzzyThreshold *float64 `json:"fuzzy_threshold"`
	VocabularyFile *string  `json:"vocabulary_file"`
}

type jsoncDispatch struct {
	Terminal     *string `json:"terminal"`
	Screenshot   *string `json:"screenshot"`
	NightLight   *string `json:"night_light"`
	DoNotDisturb *string `json:"do_not_disturb"`
	SearchURL    *string `json:"search_url"`
}

type jsoncIndicator struct {
	Enable            *bool   `json:"enable"`
	Backend           *string `json:"backend"`
	DesktopAppName    *string `json:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundWakeFile     *string `json:"sound_wake_file"`
	SoundDispatchFile *string `json:"sound_dispatch_file"`
	SoundTimeoutFile  *string `json:"sound_timeout_file"`
	SoundErrorFile    *string `json:"sound_error_file"`
	TextArmed         *string `json:"text_armed"`
	TextTimeout       *string `json:"text_timeout"`
	TextError         *string `json:"text_error"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms"`
}

type jsoncMetrics struct {
	Listen *string `json:"listen"`
}

type jsoncDebug struct {
	AudioDump    *bool   `json:"audio_dump"`
	AudioDumpDir *string `json:"audio_dump_dir"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setCommand(dst *CommandConfig, src *string, key string) error {
	if src == nil {
		return nil
	}
	argv, err := parseArgv(*src)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = CommandConfig{Raw: *src, Argv: argv}
	return nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if a := payload.Audio; a != nil {
		setTrimmed(&cfg.Audio.Backend, a.Backend)
		setTrimmed(&cfg.Audio.Input, a.Input)
		setTrimmed(&cfg.Audio.Fallback, a.Fallback)
		set(&cfg.Audio.SampleRate, a.SampleRate)
		set(&cfg.Audio.Channels, a.Channels)
		set(&cfg.Audio.ChunkMS, a.ChunkMS)
		set(&cfg.Audio.QueueSize, a.QueueSize)
		setTrimmed(&cfg.Audio.DropPolicy, a.DropPolicy)
	}

	if c := payload.Conditioner; c != nil {
		set(&cfg.Conditioner.DCAlpha, c.DCAlpha)
		set(&cfg.Conditioner.TargetRMS, c.TargetRMS)
		set(&cfg.Conditioner.MaxGain, c.MaxGain)
		set(&cfg.Conditioner.Smoothing, c.Smoothing)
		set(&cfg.Conditioner.ClipThreshold, c.ClipThreshold)
		set(&cfg.Conditioner.MinRMS, c.MinRMS)
	}

	if r := payload.Recognizer; r != nil {
		setTrimmed(&cfg.Recognizer.ModelPath, r.ModelPath)
		setTrimmed(&cfg.Recognizer.Language, r.Language)
		set(&cfg.Recognizer.Threads, r.Threads)
		set(&cfg.Recognizer.VADMode, r.VADMode)
		set(&cfg.Recognizer.SilenceMS, r.SilenceMS)
		set(&cfg.Recognizer.MaxUtteranceMS, r.MaxUtteranceMS)
	}

	if w := payload.Wake; w != nil {
		setTrimmed(&cfg.Wake.Word, w.Word)
		set(&cfg.Wake.WindowMS, w.WindowMS)
		set(&cfg.Wake.ConversationMode, w.ConversationMode)
	}

	if c := payload.Commands; c != nil {
		setTrimmed(&cfg.Commands.Language, c.Language)
		set(&cfg.Commands.FuzzyThreshold, c.FuzzyThreshold)
		setTrimmed(&cfg.Commands.VocabularyFile, c.VocabularyFile)
	}

	if d := payload.Dispatch; d != nil {
		for _, cmd := range []struct {
			dst *CommandConfig
			src *string
			key string
		}{
			{&cfg.Dispatch.Terminal, d.Terminal, "dispatch.terminal"},
			{&cfg.Dispatch.Screenshot, d.Screenshot, "dispatch.screenshot"},
			{&cfg.Dispatch.NightLight, d.NightLight, "dispatch.night_light"},
			{&cfg.Dispatch.DoNotDisturb, d.DoNotDisturb, "dispatch.do_not_disturb"},
		} {
			if err := setCommand(cmd.dst, cmd.src, cmd.key); err != nil {
				return err
			}
		}
		setTrimmed(&cfg.Dispatch.SearchURL, d.SearchURL)
	}

	if i := payload.Indicator; i != nil {
		set(&cfg.Indicator.Enable, i.Enable)
		setTrimmed(&cfg.Indicator.Backend, i.Backend)
		setTrimmed(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		set(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setTrimmed(&cfg.Indicator.SoundWakeFile, i.SoundWakeFile)
		setTrimmed(&cfg.Indicator.SoundDispatchFile, i.SoundDispatchFile)
		setTrimmed(&cfg.Indicator.SoundTimeoutFile, i.SoundTimeoutFile)
		setTrimmed(&cfg.Indicator.SoundErrorFile, i.SoundErrorFile)
		set(&cfg.Indicator.TextArmed, i.TextArmed)
		set(&cfg.Indicator.TextTimeout, i.TextTimeout)
		set(&cfg.Indicator.TextError, i.TextError)
		set(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if m := payload.Metrics; m != nil {
		setTrimmed(&cfg.Metrics.Listen, m.Listen)
	}

	if d := payload.Debug; d != nil {
		set(&cfg.Debug.EnableAudioDump, d.AudioDump)
		setTrimmed(&cfg.Debug.AudioDumpDir, d.AudioDumpDir)
	}

	if l := payload.Log; l != nil {
		setTrimmed(&cfg.Log.Level, l.Level)
	}

	return nil
}

// normalizeJSONC blanks out comments and drops trailing commas so encoding/json can decode the
// result. Byte offsets are preserved outside of removed commas so error positions stay close.
func normalizeJSONC(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	const (
		code = iota
		str
		lineComment
		blockComment
	)
	mode := code
	escape := false
	pendingComma := -1

	for i := 0; i < len(content); i++ {
		ch := content[i]
		switch mode {
		case str:
			out.WriteByte(ch)
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				mode = code
			}
		case lineComment:
			if ch == '\n' || ch == '\r' {
				mode = code
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
		case blockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				mode = code
				out.WriteString("  ")
				i++
			} else if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
		default:
			if ch == '/' && i+1 < len(content) && (content[i+1] == '/' || content[i+1] == '*') {
				if content[i+1] == '/' {
					mode = lineComment
				} else {
					mode = blockComment
				}
				out.WriteString("  ")
				i++
				continue
			}
			if (ch == '}' || ch == ']') && pendingComma >= 0 {
				blankByte(&out, pendingComma)
			}
			if !isJSONWhitespace(ch) {
				pendingComma = -1
			}
			if ch == ',' {
				pendingComma = out.Len()
			}
			if ch == '"' {
				mode = str
			}
			out.WriteByte(ch)
		}
	}

	if mode == blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	return out.String(), nil
}

func blankByte(b *strings.Builder, pos int) {
	s := []byte(b.String())
	s[pos] = ' '
	b.Reset()
	b.Write(s)
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	limit := min(int(offset), len(content))

	line, col := 1, 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
