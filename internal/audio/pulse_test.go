package audio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/rbright/aurora/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSelectDeviceFromListPrimaryDefault(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "default", "default")
	require.NoError(t, err)
	require.Equal(t, "elgato", selection.Device.ID)
	require.Empty(t, selection.Warning)
}

func TestSelectDeviceFromListMutedPrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "elgato", "sony")
	require.NoError(t, err)
	require.Equal(t, "sony", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestSelectDeviceFromListFailsWhenSelectedAndFallbackMuted(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
	}

	_, err := selectDeviceFromList(devices, "default", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "muted")
}

func TestSelectDeviceFromListUnknownInput(t *testing.T) {
	devices := []Device{{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true}}

	_, err := selectDeviceFromList(devices, "missing", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not match")
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, deviceMatches(dev, "elgato"))
	require.True(t, deviceMatches(dev, "wave 3"))
	require.False(t, deviceMatches(dev, "missing"))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)
}

func TestSelectDeviceFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := SelectDevice(context.Background(), "default", "default")
	require.Error(t, err)
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{})) // no ports => available

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func float32Bytes(samples ...float32) []byte {
	out := make([]byte, 0, len(samples)*4)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(s))
	}
	return out
}

func TestPulseRecorderChunksAndStopDiscardsPartialChunk(t *testing.T) {
	queue := NewQueue(8, DropOldest)
	rec := newPulseRecorder(queue, 2, 4)

	frames := make([]float32, 0, 12)
	for i := 0; i < 6; i++ {
		frames = append(frames, 0.5, -0.5)
	}
	input := append(float32Bytes(frames...), 0xAA, 0xBB)

	n, err := rec.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), rec.BytesCaptured())

	first := <-queue.C()
	require.Equal(t, []int16{0, 0, 0, 0}, first)

	require.NoError(t, rec.stop())
	require.NoError(t, rec.stop())

	require.Zero(t, queue.Len())
	require.Nil(t, rec.pending)
}

func TestPulseRecorderOnPCMReturnsEOFWhenStopped(t *testing.T) {
	rec := newPulseRecorder(NewQueue(1, DropOldest), 1, 320)
	require.NoError(t, rec.stop())

	n, err := rec.onPCM([]byte{1, 2, 3, 4})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), rec.BytesCaptured())
}

func TestDecodeFloat32LE(t *testing.T) {
	got := decodeFloat32LE(append(float32Bytes(1, -0.25), 0x01))
	require.Equal(t, []float32{1, -0.25}, got)
}

func TestCaptureStopClosesChunksOnce(t *testing.T) {
	stops := 0
	capture := &Capture{
		device: Device{ID: "mic-1", Description: "Mic"},
		format: Format{SampleRate: 48000, Channels: 2},
		queue:  NewQueue(1, DropOldest),
		stopFn: func() error {
			stops++
			return nil
		},
	}
	require.Equal(t, "mic-1", capture.Device().ID)
	require.Equal(t, 2, capture.Format().Channels)

	capture.Close()
	require.NoError(t, capture.Stop())
	require.Equal(t, 1, stops)

	_, ok := <-capture.Chunks()
	require.False(t, ok)
}

func TestStartCaptureRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default().Audio
	cfg.Backend = "alsa"
	_, err := StartCapture(context.Background(), cfg)
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestStartCaptureRejectsUnknownDropPolicy(t *testing.T) {
	cfg := config.Default().Audio
	cfg.DropPolicy = "block"
	_, err := StartCapture(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "drop policy")
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	replyValue := reflect.ValueOf(reply).Elem().FieldByName("Ports")
	replyValue.Set(sliceValue)
}
