package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/rbright/aurora/internal/config"
)

type portAudioRecorder struct {
	stream   *portaudio.Stream
	channels int
	device   Device
}

// startPortAudio opens the default input device with a callback stream.
func startPortAudio(cfg config.AudioConfig, queue *Queue) (*portAudioRecorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	device := Device{ID: "default", Available: true, Default: true}
	if info, err := portaudio.DefaultInputDevice(); err == nil && info != nil {
		device.ID = info.Name
		if info.HostApi != nil {
			device.Description = info.HostApi.Name
		}
	}

	channels := max(cfg.Channels, 1)
	framesPerBuffer := cfg.SampleRate * cfg.ChunkMS / 1000
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(cfg.SampleRate), framesPerBuffer, func(in []float32) {
		queue.Push(Downmix(in, channels))
	})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start portaudio stream: %w", err)
	}

	return &portAudioRecorder{stream: stream, channels: channels, device: device}, nil
}

func (r *portAudioRecorder) stop() error {
	return errors.Join(r.stream.Stop(), r.stream.Close(), portaudio.Terminate())
}

// ListPortAudioDevices returns input-capable devices known to PortAudio.
func ListPortAudioDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil || info.MaxInputChannels < 1 {
			continue
		}
		dev := Device{
			ID:        info.Name,
			State:     fmt.Sprintf("%d ch @ %.0f Hz", info.MaxInputChannels, info.DefaultSampleRate),
			Available: true,
			Default:   info.Name == defaultName,
		}
		if info.HostApi != nil {
			dev.Description = info.HostApi.Name
		}
		devices = append(devices, dev)
	}
	return devices, nil
}
