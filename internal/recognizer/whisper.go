package recognizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	webrtcvad "github.com/maxhawkins/go-webrtcvad"
	"github.com/rbright/aurora/internal/config"
)

var _ Recognizer = (*Whisper)(nil)

// Whisper is an offline recognizer backed by whisper.cpp with WebRTC VAD endpointing.
type Whisper struct {
	*Endpointer

	model    whisperlib.Model
	vad      *webrtcvad.VAD
	language string
	threads  int
	frame    []byte
}

// NewWhisper loads the model at cfg.ModelPath. The caller must Close it.
func NewWhisper(cfg config.RecognizerConfig) (*Whisper, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("whisper model path must not be empty")
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("create vad: %w", err)
	}
	if err := vad.SetMode(cfg.VADMode); err != nil {
		return nil, fmt.Errorf("set vad mode %d: %w", cfg.VADMode, err)
	}

	model, err := whisperlib.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", cfg.ModelPath, err)
	}

	w := &Whisper{
		model:    model,
		vad:      vad,
		language: cfg.Language,
		threads:  cfg.Threads,
		frame:    make([]byte, FrameSamples*2),
	}
	w.Endpointer, err = NewEndpointer(EndpointConfig{
		SilenceMS:      cfg.SilenceMS,
		MaxUtteranceMS: cfg.MaxUtteranceMS,
	}, w.detect, w.infer)
	if err != nil {
		_ = model.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the model.
func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}

func (w *Whisper) detect(frame []int16) (bool, error) {
	for i, s := range frame {
		w.frame[i*2] = byte(s)
		w.frame[i*2+1] = byte(s >> 8)
	}
	return w.vad.Process(SampleRate, w.frame[:len(frame)*2])
}

// infer runs one utterance through a fresh whisper context.
func (w *Whisper) infer(ctx context.Context, samples []float32) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create whisper context: %w", err)
	}
	if lang := strings.TrimSpace(w.language); lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			return nil, fmt.Errorf("set whisper language %q: %w", lang, err)
		}
	}
	if w.threads > 0 {
		wctx.SetThreads(uint(w.threads))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper process: %w", err)
	}

	var segments []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read whisper segment: %w", err)
		}
		segments = append(segments, segment.Text)
	}
	return segments, nil
}
