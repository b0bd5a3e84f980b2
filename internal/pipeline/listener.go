package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/aurora/internal/audio"
	"github.com/rbright/aurora/internal/debugdump"
	"github.com/rbright/aurora/internal/dsp"
	"github.com/rbright/aurora/internal/observe"
	"github.com/rbright/aurora/internal/recognizer"
	"github.com/rbright/aurora/internal/session"
)

// ErrCaptureClosed reports that the capture producer closed its chunk channel.
var ErrCaptureClosed = errors.New("capture channel closed")

// ErrListenerStopped reports a control request sent after Run returned.
var ErrListenerStopped = errors.New("listener stopped")

// Source is the producer side of the capture queue.
type Source interface {
	Chunks() <-chan []int16
	Format() audio.Format
	Dropped() uint64
}

// ListenerConfig wires the audio half of the pipeline.
type ListenerConfig struct {
	Source      Source
	Recognizer  recognizer.Recognizer
	Commander   *Commander
	Conditioner dsp.ConditionerConfig
	// Device names the capture device in logs and status replies.
	Device string
	// Dumper, when set, receives conditioned speech and writes one WAV per utterance.
	Dumper  *debugdump.Dumper
	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Status is a point-in-time view of the listener for the control socket.
type Status struct {
	Session session.Snapshot
	Device  string
	Dropped uint64
}

type action struct {
	apply func() session.Snapshot
	reply chan session.Snapshot
}

// Listener consumes capture chunks on one goroutine: resample, condition,
// recognize, then hand finalized text to the Commander.
// The recognizer is only touched from inside Run.
type Listener struct {
	source      Source
	recognizer  recognizer.Recognizer
	commander   *Commander
	resampler   *dsp.Resampler
	conditioner *dsp.Conditioner
	device      string
	dumper      *debugdump.Dumper
	metrics     *observe.Metrics
	logger      *slog.Logger

	actions chan action
	done    chan struct{}
}

// NewListener validates cfg and returns a listener ready to Run.
func NewListener(cfg ListenerConfig) (*Listener, error) {
	if cfg.Source == nil {
		return nil, errors.New("listener requires a capture source")
	}
	if cfg.Recognizer == nil {
		return nil, errors.New("listener requires a recognizer")
	}
	if cfg.Commander == nil || cfg.Commander.Machine() == nil {
		return nil, errors.New("listener requires a commander with a session machine")
	}
	if err := cfg.Conditioner.Validate(); err != nil {
		return nil, fmt.Errorf("conditioner: %w", err)
	}

	l := &Listener{
		source:      cfg.Source,
		recognizer:  cfg.Recognizer,
		commander:   cfg.Commander,
		resampler:   dsp.NewResampler(cfg.Source.Format().SampleRate, recognizer.SampleRate),
		conditioner: dsp.NewConditioner(cfg.Conditioner),
		device:      cfg.Device,
		dumper:      cfg.Dumper,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		actions:     make(chan action),
		done:        make(chan struct{}),
	}
	if l.metrics == nil {
		l.metrics = observe.NoopMetrics()
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	return l, nil
}

// Run consumes chunks until a command quits, the capture channel closes,
// the recognizer fails, or ctx is cancelled. Cancellation returns nil.
func (l *Listener) Run(ctx context.Context) error {
	defer close(l.done)
	l.resetSignal()

	format := l.source.Format()
	l.logger.Info("listener started",
		"device", l.device,
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
		"wake_word", l.commander.Machine().WakeWord(),
	)

	err := l.loop(ctx)
	l.logger.Info("listener stopped",
		"device", l.device,
		"dropped_chunks", l.source.Dropped(),
		"error", errString(err),
	)
	return err
}

func (l *Listener) loop(ctx context.Context) error {
	chunks := l.source.Chunks()
	for {
		select {
		case <-ctx.Done():
			return nil
		case act := <-l.actions:
			act.reply <- act.apply()
		case chunk, ok := <-chunks:
			if !ok {
				return ErrCaptureClosed
			}
			stop, err := l.handleChunk(ctx, chunk)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
}

func (l *Listener) handleChunk(ctx context.Context, chunk []int16) (bool, error) {
	samples := l.resampler.Process(chunk)
	active := l.conditioner.Process(samples)
	l.metrics.RecordChunk(ctx, !active, l.conditioner.Gain())

	started := time.Now()
	var (
		decoding recognizer.Decoding
		err      error
	)
	if active {
		if l.dumper != nil {
			l.dumper.Append(samples)
		}
		decoding, err = l.recognizer.AcceptWaveform(ctx, samples)
	} else {
		decoding, err = l.recognizer.AcceptSilence(ctx, len(samples))
	}
	if err != nil {
		return false, fmt.Errorf("recognize: %w", err)
	}
	if decoding != recognizer.Finalized {
		return false, nil
	}

	text := l.recognizer.Result().Best()
	l.metrics.RecordUtterance(ctx, time.Since(started), text == "")
	l.logger.Debug("utterance finalized", "text", text, "took", time.Since(started))

	out, stop := l.commander.Observe(ctx, text)
	l.flushDump(out)
	if out.Kind == session.OutcomeArmed {
		l.logger.Debug("capture queue", "dropped_chunks", l.source.Dropped(), "device", l.device)
	}
	return stop, nil
}

// resetSignal drops carried resampler and conditioner state so a new session
// does not inherit the previous one's gain or DC estimate.
func (l *Listener) resetSignal() {
	l.resampler.Reset()
	l.conditioner.Reset()
}

func (l *Listener) flushDump(out session.Outcome) {
	if l.dumper == nil {
		return
	}
	path, err := l.dumper.Flush(out.Kind.String())
	if err != nil {
		l.logger.Warn("audio dump failed", "error", err.Error())
		return
	}
	if path != "" {
		l.logger.Debug("audio dump written", "path", path, "cycle_id", out.CycleID)
	}
}

// Arm opens a command window from outside the consumer goroutine.
func (l *Listener) Arm(ctx context.Context) (session.Snapshot, error) {
	return l.do(ctx, func() session.Snapshot {
		snap := l.commander.Machine().Arm()
		l.logger.Info("command window opened", "cycle_id", snap.CycleID, "state", snap.State, "deadline", snap.Deadline, "source", "control")
		l.commander.indicator.ShowArmed(ctx)
		return snap
	})
}

// Disarm closes any open command window from outside the consumer goroutine.
func (l *Listener) Disarm(ctx context.Context) (session.Snapshot, error) {
	return l.do(ctx, func() session.Snapshot {
		snap := l.commander.Machine().Disarm()
		l.resetSignal()
		l.logger.Info("command window closed", "state", snap.State, "source", "control")
		l.commander.indicator.Hide(ctx)
		return snap
	})
}

// Status reports the session state without waiting on the consumer goroutine.
func (l *Listener) Status() Status {
	return Status{
		Session: l.commander.Machine().Snapshot(),
		Device:  l.device,
		Dropped: l.source.Dropped(),
	}
}

// do runs apply on the consumer goroutine so recognizer resets never race a chunk.
func (l *Listener) do(ctx context.Context, apply func() session.Snapshot) (session.Snapshot, error) {
	act := action{apply: apply, reply: make(chan session.Snapshot, 1)}
	select {
	case l.actions <- act:
	case <-l.done:
		return session.Snapshot{}, ErrListenerStopped
	case <-ctx.Done():
		return session.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-act.reply:
		return snap, nil
	case <-ctx.Done():
		return session.Snapshot{}, ctx.Err()
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
