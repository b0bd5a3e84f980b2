package recognizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/aurora/internal/transcript"
)

// FrameSamples is the speech-detection frame: 20 ms at SampleRate.
const FrameSamples = SampleRate / 50

// SpeechDetector reports whether one FrameSamples frame contains speech.
type SpeechDetector func(frame []int16) (bool, error)

// InferFunc transcribes one utterance of float samples in [-1, 1] into text segments.
type InferFunc func(ctx context.Context, samples []float32) ([]string, error)

// EndpointConfig controls when a buffered utterance is finalized.
type EndpointConfig struct {
	SilenceMS      int
	MaxUtteranceMS int
}

// Endpointer buffers speech and finalizes an utterance after trailing silence
// or when the utterance reaches its maximum length.
type Endpointer struct {
	silenceSamples int
	maxSamples     int
	detect         SpeechDetector
	infer          InferFunc

	pending   []int16
	utterance []int16
	hadSpeech bool
	silence   int
	result    Result
}

// NewEndpointer returns an Endpointer using detect for frame classification and infer for transcription.
func NewEndpointer(cfg EndpointConfig, detect SpeechDetector, infer InferFunc) (*Endpointer, error) {
	if detect == nil || infer == nil {
		return nil, errors.New("endpointer requires a speech detector and an infer func")
	}
	if cfg.SilenceMS <= 0 || cfg.MaxUtteranceMS <= cfg.SilenceMS {
		return nil, fmt.Errorf("invalid endpoint timing: silence=%dms max=%dms", cfg.SilenceMS, cfg.MaxUtteranceMS)
	}
	return &Endpointer{
		silenceSamples: cfg.SilenceMS * SampleRate / 1000,
		maxSamples:     cfg.MaxUtteranceMS * SampleRate / 1000,
		detect:         detect,
		infer:          infer,
	}, nil
}

// AcceptWaveform implements Recognizer. Frames left over after a finalization stay buffered.
func (e *Endpointer) AcceptWaveform(ctx context.Context, samples []int16) (Decoding, error) {
	e.pending = append(e.pending, samples...)
	for len(e.pending) >= FrameSamples {
		frame := e.pending[:FrameSamples]
		speech, err := e.detect(frame)
		if err != nil {
			return NeedMoreData, fmt.Errorf("detect speech: %w", err)
		}
		e.consume(frame, speech)
		e.pending = e.pending[FrameSamples:]

		if e.ready() {
			e.pending = append([]int16(nil), e.pending...)
			return e.finalize(ctx)
		}
	}
	e.pending = append([]int16(nil), e.pending...)
	return NeedMoreData, nil
}

// AcceptSilence implements Recognizer.
func (e *Endpointer) AcceptSilence(ctx context.Context, samples int) (Decoding, error) {
	e.pending = e.pending[:0]
	if !e.hadSpeech || samples <= 0 {
		return NeedMoreData, nil
	}
	e.silence += samples
	if e.ready() {
		return e.finalize(ctx)
	}
	return NeedMoreData, nil
}

// Result implements Recognizer.
func (e *Endpointer) Result() Result {
	return e.result
}

// Reset implements Recognizer.
func (e *Endpointer) Reset() {
	e.pending = nil
	e.clearUtterance()
	e.result = Result{}
}

func (e *Endpointer) consume(frame []int16, speech bool) {
	switch {
	case speech:
		e.hadSpeech = true
		e.silence = 0
		e.utterance = append(e.utterance, frame...)
	case e.hadSpeech:
		e.silence += len(frame)
		e.utterance = append(e.utterance, frame...)
	}
}

func (e *Endpointer) ready() bool {
	return e.hadSpeech && (e.silence >= e.silenceSamples || len(e.utterance) >= e.maxSamples)
}

func (e *Endpointer) finalize(ctx context.Context) (Decoding, error) {
	samples := make([]float32, len(e.utterance))
	for i, s := range e.utterance {
		samples[i] = float32(s) / 32768.0
	}
	e.clearUtterance()

	segments, err := e.infer(ctx, samples)
	if err != nil {
		e.result = Result{}
		return NeedMoreData, fmt.Errorf("transcribe utterance: %w", err)
	}

	e.result = Result{}
	if text := transcript.Assemble(segments); text != "" {
		e.result.Alternatives = []string{text}
	}
	return Finalized, nil
}

func (e *Endpointer) clearUtterance() {
	e.utterance = nil
	e.hadSpeech = false
	e.silence = 0
}
