// Package audio handles device discovery, selection, and PCM capture streams.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/aurora/internal/config"
)

// ErrUnknownBackend reports an audio.backend value with no implementation.
var ErrUnknownBackend = errors.New("unknown audio backend")

// Option customizes StartCapture.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes capture warnings such as device fallbacks to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Capture is a running capture stream feeding a bounded queue of mono 16-bit chunks.
type Capture struct {
	format Format
	device Device
	queue  *Queue
	stopFn func() error

	stopOnce sync.Once
	stopErr  error
}

// StartCapture opens the configured backend and starts producing chunks.
// The stream stops when ctx is cancelled or Stop is called.
func StartCapture(ctx context.Context, cfg config.AudioConfig, opts ...Option) (*Capture, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	policy, err := ParseDropPolicy(cfg.DropPolicy)
	if err != nil {
		return nil, err
	}
	queue := NewQueue(cfg.QueueSize, policy)

	var capture *Capture
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "pulse", "":
		rec, device, err := startPulse(ctx, cfg, queue, o.logger)
		if err != nil {
			return nil, err
		}
		capture = &Capture{
			format: Format{SampleRate: cfg.SampleRate, Channels: rec.channels},
			device: device,
			queue:  queue,
			stopFn: rec.stop,
		}
	case "portaudio":
		rec, err := startPortAudio(cfg, queue)
		if err != nil {
			return nil, err
		}
		capture = &Capture{
			format: Format{SampleRate: cfg.SampleRate, Channels: rec.channels},
			device: rec.device,
			queue:  queue,
			stopFn: rec.stop,
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	go func() {
		<-ctx.Done()
		_ = capture.Stop()
	}()

	return capture, nil
}

// Chunks returns mono 16-bit chunks in capture order. It is closed by Stop.
func (c *Capture) Chunks() <-chan []int16 {
	return c.queue.C()
}

// Format returns the device format before downmixing.
func (c *Capture) Format() Format {
	return c.format
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// Dropped reports chunks discarded because the consumer fell behind.
func (c *Capture) Dropped() uint64 {
	return c.queue.Dropped()
}

// Stop halts the backend and closes Chunks exactly once.
func (c *Capture) Stop() error {
	c.stopOnce.Do(func() {
		if c.stopFn != nil {
			c.stopErr = c.stopFn()
		}
		c.queue.Close()
	})
	return c.stopErr
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}
