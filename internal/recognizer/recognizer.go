// Package recognizer turns a 16 kHz mono PCM stream into finalized utterance texts.
package recognizer

import "context"

// SampleRate is the only input rate recognizers accept.
const SampleRate = 16000

// Decoding reports whether an utterance was finalized by the last call.
type Decoding int

const (
	// NeedMoreData means no utterance ended yet.
	NeedMoreData Decoding = iota
	// Finalized means Result holds the text of a completed utterance.
	Finalized
)

func (d Decoding) String() string {
	if d == Finalized {
		return "finalized"
	}
	return "need_more_data"
}

// Result holds ranked alternatives for the last finalized utterance.
type Result struct {
	Alternatives []string
}

// Best returns the top alternative, or "" when there is none.
func (r Result) Best() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0]
}

// Recognizer is a streaming speech recognizer. Implementations are not safe for concurrent use.
type Recognizer interface {
	// AcceptWaveform feeds speech-candidate samples at SampleRate.
	AcceptWaveform(ctx context.Context, samples []int16) (Decoding, error)
	// AcceptSilence reports that samples worth of audio was gated out as silence.
	AcceptSilence(ctx context.Context, samples int) (Decoding, error)
	// Result returns the last finalized utterance.
	Result() Result
	// Reset discards buffered audio and the last result.
	Reset()
	Close() error
}
