package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/rbright/aurora/internal/config"
)

// Device describes one input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns available Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	var (
		defaultDevice *Device
		byInput       *Device
		byFallback    *Device
	)

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && input != "" && input != "default" && deviceMatches(*dev, input) {
			byInput = dev
		}
		if byFallback == nil && fallback != "" && fallback != "default" && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, errors.New("default audio source is unavailable")
		}
		return defaultDevice, nil
	}

	selectPrimary := func() (*Device, error) {
		if input == "" || input == "default" {
			return chooseDefault()
		}
		if byInput != nil {
			return byInput, nil
		}
		return nil, fmt.Errorf("audio.input %q did not match any device", input)
	}

	primary, err := selectPrimary()
	if err != nil {
		return Selection{}, err
	}
	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	primaryReason := "unavailable"
	if primary.Muted {
		primaryReason = "muted"
	}

	fallbackDevice := primary
	if fallback != "" && fallback != "default" {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, primaryReason, fallback)
		}
		fallbackDevice = byFallback
	} else {
		d, derr := chooseDefault()
		if derr != nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, primaryReason, derr)
		}
		fallbackDevice = d
	}

	if !fallbackDevice.Available {
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", fallbackDevice.ID)
	}
	if fallbackDevice.Muted {
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", fallbackDevice.ID)
	}

	return Selection{
		Device:   *fallbackDevice,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, primaryReason, fallbackDevice.ID),
		Fallback: primary.ID != fallbackDevice.ID,
	}, nil
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// pulseRecorder turns Pulse float frames into fixed-duration mono chunks on a Queue.
type pulseRecorder struct {
	client *pulse.Client
	stream *pulse.RecordStream
	queue  *Queue

	channels   int
	chunkBytes int

	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// startPulse selects a source and starts a float32 record stream at the configured rate.
// Pulse records mono or stereo; wider layouts are captured as stereo.
func startPulse(ctx context.Context, cfg config.AudioConfig, queue *Queue, logger *slog.Logger) (*pulseRecorder, Device, error) {
	selection, err := SelectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return nil, Device{}, fmt.Errorf("select audio device: %w", err)
	}
	if selection.Warning != "" {
		logger.Warn(selection.Warning, "device", selection.Device.ID)
	}

	client, err := newPulseClient()
	if err != nil {
		return nil, Device{}, err
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, Device{}, fmt.Errorf("resolve source %q: %w", selection.Device.ID, err)
	}

	channels, layout := 1, pulse.RecordMono
	if cfg.Channels >= 2 {
		channels, layout = 2, pulse.RecordStereo
	}
	rec := newPulseRecorder(queue, channels, cfg.SampleRate*cfg.ChunkMS/1000)
	rec.client = client

	writer := pulse.NewWriter(writerFunc(rec.onPCM), pulseproto.FormatFloat32LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		layout,
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(rec.chunkBytes)),
		pulse.RecordMediaName("aurora voice commands"),
	)
	if err != nil {
		_ = rec.stop()
		return nil, Device{}, fmt.Errorf("create pulse record stream: %w", err)
	}

	rec.stream = stream
	stream.Start()
	return rec, selection.Device, nil
}

func newPulseRecorder(queue *Queue, channels int, chunkFrames int) *pulseRecorder {
	return &pulseRecorder{
		queue:      queue,
		channels:   channels,
		chunkBytes: max(chunkFrames, 1) * channels * 4,
		stopCh:     make(chan struct{}),
	}
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("aurora"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// BytesCaptured reports total bytes accepted from Pulse.
func (r *pulseRecorder) BytesCaptured() int64 {
	return r.bytes.Load()
}

// stop halts the stream and discards any partial chunk.
func (r *pulseRecorder) stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.stopCh)
	r.mu.Unlock()

	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
	}
	if r.client != nil {
		r.client.Close()
	}

	r.inflight.Wait()

	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()
	return nil
}

// onPCM receives raw Pulse bytes and pushes chunkBytes-sized chunks to the queue.
func (r *pulseRecorder) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-r.stopCh:
		return 0, io.EOF
	default:
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as r.stopped to avoid Add/Wait races.
	r.inflight.Add(1)

	r.pending = append(r.pending, buffer...)
	chunks := make([][]byte, 0, len(r.pending)/r.chunkBytes)
	for len(r.pending) >= r.chunkBytes {
		chunks = append(chunks, r.pending[:r.chunkBytes:r.chunkBytes])
		r.pending = r.pending[r.chunkBytes:]
	}
	r.pending = append([]byte(nil), r.pending...)
	r.mu.Unlock()
	defer r.inflight.Done()

	r.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		r.queue.Push(Downmix(decodeFloat32LE(chunk), r.channels))
	}
	return len(buffer), nil
}

func decodeFloat32LE(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
