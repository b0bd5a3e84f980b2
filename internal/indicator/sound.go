package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/aurora/internal/config"
)

type cueKind int

const (
	cueWake cueKind = iota + 1
	cueDispatch
	cueTimeout
	cueError
)

func (k cueKind) String() string {
	switch k {
	case cueWake:
		return "wake"
	case cueDispatch:
		return "dispatch"
	case cueTimeout:
		return "timeout"
	case cueError:
		return "error"
	default:
		return "unknown"
	}
}

const cueSampleRate = 16000

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var (
	wakeCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	})
	dispatchCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 740, duration: 65 * time.Millisecond, volume: 0.18},
		{frequencyHz: 988, duration: 90 * time.Millisecond, volume: 0.18},
	})
	timeoutCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 480, duration: 75 * time.Millisecond, volume: 0.18},
		{frequencyHz: 360, duration: 90 * time.Millisecond, volume: 0.18},
	})
	errorCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 330, duration: 90 * time.Millisecond, volume: 0.2},
		{frequencyHz: 330, duration: 90 * time.Millisecond, volume: 0.2},
		{frequencyHz: 247, duration: 140 * time.Millisecond, volume: 0.2},
	})
)

// emitCue plays the configured cue file when present, else the synthesized tone.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}

	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playSynthCue(ctx, kind, samples)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	var raw string
	switch kind {
	case cueWake:
		raw = cfg.SoundWakeFile
	case cueDispatch:
		raw = cfg.SoundDispatchFile
	case cueTimeout:
		raw = cfg.SoundTimeoutFile
	case cueError:
		raw = cfg.SoundErrorFile
	default:
		return ""
	}
	return config.ExpandPath(raw)
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func playSynthCue(ctx context.Context, kind cueKind, samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("aurora"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) || ctx.Err() != nil {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("aurora "+kind.String()+" cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

func cueSamples(kind cueKind) []int16 {
	switch kind {
	case cueWake:
		return wakeCuePCM
	case cueDispatch:
		return dispatchCuePCM
	case cueTimeout:
		return timeoutCuePCM
	case cueError:
		return errorCuePCM
	default:
		return nil
	}
}

// synthesizeCue concatenates tones with a short silent gap between them.
func synthesizeCue(parts []toneSpec) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gapSamples := samplesForDuration(22 * time.Millisecond)

	var pcm []int16
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 {
			pcm = append(pcm, make([]int16, gapSamples)...)
		}
	}
	return pcm
}

// synthesizeTone renders a sine tone with a linear attack and release of at most 5ms.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := min(n/10, cueSampleRate/200)
	ramp = max(ramp, 1)

	pcm := make([]int16, n)
	for i := range n {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			envelope = math.Min(envelope, float64(tail)/float64(ramp))
		}
		t := float64(i) / cueSampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * 32767))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
