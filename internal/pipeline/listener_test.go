package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/aurora/internal/audio"
	"github.com/rbright/aurora/internal/command"
	"github.com/rbright/aurora/internal/debugdump"
	"github.com/rbright/aurora/internal/dispatch"
	"github.com/rbright/aurora/internal/dsp"
	"github.com/rbright/aurora/internal/fsm"
	"github.com/rbright/aurora/internal/recognizer"
	"github.com/rbright/aurora/internal/session"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	ch      chan []int16
	format  audio.Format
	dropped atomic.Uint64
}

func newFakeSource(buffer int) *fakeSource {
	return &fakeSource{
		ch:     make(chan []int16, buffer),
		format: audio.Format{SampleRate: recognizer.SampleRate, Channels: 1},
	}
}

func (s *fakeSource) Chunks() <-chan []int16 { return s.ch }
func (s *fakeSource) Format() audio.Format   { return s.format }
func (s *fakeSource) Dropped() uint64        { return s.dropped.Load() }

// fakeRecognizer finalizes one scripted text per speech chunk.
type fakeRecognizer struct {
	mu       sync.Mutex
	texts    []string
	result   recognizer.Result
	silences []int
	speech   int
	err      error
	resets   atomic.Int32
}

func (r *fakeRecognizer) AcceptWaveform(_ context.Context, samples []int16) (recognizer.Decoding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return recognizer.NeedMoreData, r.err
	}
	r.speech += len(samples)
	if len(r.texts) == 0 {
		return recognizer.NeedMoreData, nil
	}
	r.result = recognizer.Result{Alternatives: []string{r.texts[0]}}
	r.texts = r.texts[1:]
	return recognizer.Finalized, nil
}

func (r *fakeRecognizer) AcceptSilence(_ context.Context, samples int) (recognizer.Decoding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.silences = append(r.silences, samples)
	return recognizer.NeedMoreData, nil
}

func (r *fakeRecognizer) Result() recognizer.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *fakeRecognizer) Reset() { r.resets.Add(1) }

func (r *fakeRecognizer) Close() error { return nil }

type fakeDispatcher struct {
	mu       sync.Mutex
	commands []command.Command
}

func (d *fakeDispatcher) Dispatch(_ context.Context, cmd command.Command) dispatch.Result {
	d.mu.Lock()
	d.commands = append(d.commands, cmd)
	d.mu.Unlock()
	switch cmd.(type) {
	case command.Quit:
		return dispatch.ResultQuit
	case command.EndConversation:
		return dispatch.ResultEndConversation
	default:
		return dispatch.ResultRunning
	}
}

func (d *fakeDispatcher) Commands() []command.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]command.Command(nil), d.commands...)
}

type fakeIndicator struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeIndicator) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeIndicator) ShowArmed(context.Context)             { f.record("armed") }
func (f *fakeIndicator) ShowCommand(_ context.Context, d string) { f.record("command:" + d) }
func (f *fakeIndicator) ShowTimeout(context.Context)           { f.record("timeout") }
func (f *fakeIndicator) ShowError(context.Context, string)     { f.record("error") }
func (f *fakeIndicator) Hide(context.Context)                  { f.record("hide") }

func (f *fakeIndicator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type harness struct {
	source     *fakeSource
	recognizer *fakeRecognizer
	dispatcher *fakeDispatcher
	indicator  *fakeIndicator
	commander  *Commander
	listener   *Listener
}

func newHarness(t *testing.T, texts []string, conversation bool, opts ...session.Option) *harness {
	t.Helper()

	h := &harness{
		source:     newFakeSource(16),
		recognizer: &fakeRecognizer{texts: texts},
		dispatcher: &fakeDispatcher{},
		indicator:  &fakeIndicator{},
	}
	machine, err := session.NewMachine(session.Config{WakeWord: "aurora", Window: 6 * time.Second}, h.recognizer, opts...)
	require.NoError(t, err)

	h.commander = NewCommander(CommanderConfig{
		Machine:          machine,
		Classifier:       command.NewClassifier(command.Options{}),
		Dispatcher:       h.dispatcher,
		Indicator:        h.indicator,
		ConversationMode: conversation,
	})
	h.listener, err = NewListener(ListenerConfig{
		Source:      h.source,
		Recognizer:  h.recognizer,
		Commander:   h.commander,
		Conditioner: dsp.DefaultConditionerConfig(),
		Device:      "test-mic",
	})
	require.NoError(t, err)
	return h
}

func speechChunk() []int16 {
	chunk := make([]int16, 1600)
	for i := range chunk {
		chunk[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/recognizer.SampleRate))
	}
	return chunk
}

func TestListenerWakeThenCommandDispatches(t *testing.T) {
	h := newHarness(t, []string{"hey aurora", "open firefox"}, false)
	h.source.ch <- speechChunk()
	h.source.ch <- speechChunk()
	close(h.source.ch)

	err := h.listener.Run(context.Background())
	require.ErrorIs(t, err, ErrCaptureClosed)

	require.Equal(t, []command.Command{command.OpenApp{App: command.AppFirefox}}, h.dispatcher.Commands())
	require.Equal(t, []string{"armed", "command:open_app(firefox)"}, h.indicator.Calls())
	require.EqualValues(t, 2, h.recognizer.resets.Load())
	require.Equal(t, fsm.StateIdle, h.listener.Status().Session.State)
}

func TestListenerStopsOnQuit(t *testing.T) {
	h := newHarness(t, []string{"aurora", "quit", "open firefox"}, false)
	for range 3 {
		h.source.ch <- speechChunk()
	}

	require.NoError(t, h.listener.Run(context.Background()))
	require.Equal(t, []command.Command{command.Quit{}}, h.dispatcher.Commands())
	require.Len(t, h.source.ch, 1)
}

func TestListenerIgnoresCommandsWithoutWakeWord(t *testing.T) {
	h := newHarness(t, []string{"open firefox", "volume up"}, false)
	h.source.ch <- speechChunk()
	h.source.ch <- speechChunk()
	close(h.source.ch)

	require.ErrorIs(t, h.listener.Run(context.Background()), ErrCaptureClosed)
	require.Empty(t, h.dispatcher.Commands())
	require.Zero(t, h.recognizer.resets.Load())
}

func TestListenerGatedChunksReachRecognizerAsSilence(t *testing.T) {
	h := newHarness(t, nil, false)
	h.source.ch <- make([]int16, 320)
	h.source.ch <- speechChunk()
	close(h.source.ch)

	require.ErrorIs(t, h.listener.Run(context.Background()), ErrCaptureClosed)
	require.Equal(t, []int{320}, h.recognizer.silences)
	require.Equal(t, 1600, h.recognizer.speech)
}

func TestListenerResamplesToRecognizerRate(t *testing.T) {
	h := newHarness(t, nil, false)
	h.source.format = audio.Format{SampleRate: 48000, Channels: 2}
	var err error
	h.listener, err = NewListener(ListenerConfig{
		Source:      h.source,
		Recognizer:  h.recognizer,
		Commander:   h.commander,
		Conditioner: dsp.DefaultConditionerConfig(),
	})
	require.NoError(t, err)

	chunk := make([]int16, 4800)
	for i := range chunk {
		chunk[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/48000))
	}
	h.source.ch <- chunk
	close(h.source.ch)

	require.ErrorIs(t, h.listener.Run(context.Background()), ErrCaptureClosed)
	require.InDelta(t, 1600, h.recognizer.speech, 2)
}

func TestListenerRecognizerErrorIsFatal(t *testing.T) {
	h := newHarness(t, nil, false)
	boom := errors.New("model exploded")
	h.recognizer.err = boom
	h.source.ch <- speechChunk()

	err := h.listener.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "recognize:")
}

func TestListenerContextCancelReturnsNil(t *testing.T) {
	h := newHarness(t, nil, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.listener.Run(ctx))
}

func TestListenerArmAndDisarmRunOnConsumer(t *testing.T) {
	h := newHarness(t, []string{"volume up"}, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.listener.Run(ctx) }()

	snap, err := h.listener.Arm(context.Background())
	require.NoError(t, err)
	require.Equal(t, fsm.StateArmed, snap.State)
	require.NotEmpty(t, snap.CycleID)
	require.Equal(t, fsm.StateArmed, h.listener.Status().Session.State)

	snap, err = h.listener.Disarm(context.Background())
	require.NoError(t, err)
	require.Equal(t, fsm.StateIdle, snap.State)

	_, err = h.listener.Arm(context.Background())
	require.NoError(t, err)
	h.source.ch <- speechChunk()
	require.Eventually(t, func() bool { return len(h.dispatcher.Commands()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, command.VolumeUp{}, h.dispatcher.Commands()[0])

	cancel()
	require.NoError(t, <-done)

	_, err = h.listener.Arm(context.Background())
	require.ErrorIs(t, err, ErrListenerStopped)
	require.Equal(t, []string{"armed", "hide", "armed", "command:volume_up"}, h.indicator.Calls())
}

func TestListenerDisarmResetsSignalChain(t *testing.T) {
	h := newHarness(t, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.listener.Run(ctx) }()

	h.source.ch <- speechChunk()
	require.Eventually(t, func() bool {
		h.recognizer.mu.Lock()
		defer h.recognizer.mu.Unlock()
		return h.recognizer.speech == 1600
	}, time.Second, 5*time.Millisecond)

	_, err := h.listener.Disarm(context.Background())
	require.NoError(t, err)

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, 1.0, h.listener.conditioner.Gain())
	require.Zero(t, h.listener.conditioner.DCOffset())
}

func TestListenerRunStartsWithFreshSignalChain(t *testing.T) {
	h := newHarness(t, nil, false)
	h.listener.conditioner.Process(speechChunk())
	require.NotEqual(t, 1.0, h.listener.conditioner.Gain())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.listener.Run(ctx))
	require.Equal(t, 1.0, h.listener.conditioner.Gain())
	require.Zero(t, h.listener.conditioner.DCOffset())
}

func TestListenerStatusReportsDeviceAndDrops(t *testing.T) {
	h := newHarness(t, nil, false)
	h.source.dropped.Store(7)

	status := h.listener.Status()
	require.Equal(t, "test-mic", status.Device)
	require.EqualValues(t, 7, status.Dropped)
	require.Equal(t, fsm.StateIdle, status.Session.State)
}

func TestListenerWritesAudioDumpPerUtterance(t *testing.T) {
	h := newHarness(t, []string{"aurora"}, false)
	fs := afero.NewMemMapFs()
	dumper := debugdump.New(fs, "/dump")

	var err error
	h.listener, err = NewListener(ListenerConfig{
		Source:      h.source,
		Recognizer:  h.recognizer,
		Commander:   h.commander,
		Conditioner: dsp.DefaultConditionerConfig(),
		Dumper:      dumper,
	})
	require.NoError(t, err)

	h.source.ch <- speechChunk()
	close(h.source.ch)
	require.ErrorIs(t, h.listener.Run(context.Background()), ErrCaptureClosed)

	entries, err := afero.ReadDir(fs, "/dump")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "-armed.wav")
}

func TestNewListenerValidates(t *testing.T) {
	h := newHarness(t, nil, false)

	_, err := NewListener(ListenerConfig{Recognizer: h.recognizer, Commander: h.commander})
	require.Error(t, err)

	_, err = NewListener(ListenerConfig{Source: h.source, Commander: h.commander})
	require.Error(t, err)

	_, err = NewListener(ListenerConfig{Source: h.source, Recognizer: h.recognizer})
	require.Error(t, err)

	bad := dsp.DefaultConditionerConfig()
	bad.MaxGain = 0
	_, err = NewListener(ListenerConfig{Source: h.source, Recognizer: h.recognizer, Commander: h.commander, Conditioner: bad})
	require.ErrorContains(t, err, "conditioner")
}
