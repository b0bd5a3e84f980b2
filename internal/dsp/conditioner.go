package dsp

import (
	"errors"
	"fmt"
	"math"
)

const rmsFloor = 1e-6

// ConditionerConfig controls the per-chunk conditioning stages.
type ConditionerConfig struct {
	DCAlpha       float64
	TargetRMS     float64
	MaxGain       float64
	Smoothing     float64
	ClipThreshold float64 // fraction of int16 full scale
	MinRMS        float64
}

// DefaultConditionerConfig returns the tuning used by the listener unless configured otherwise.
func DefaultConditionerConfig() ConditionerConfig {
	return ConditionerConfig{
		DCAlpha:       0.999,
		TargetRMS:     0.12,
		MaxGain:       8.0,
		Smoothing:     0.95,
		ClipThreshold: 0.95,
		MinRMS:        0.008,
	}
}

// Validate rejects settings that would make the stages unstable.
func (c ConditionerConfig) Validate() error {
	var errs []error
	if c.DCAlpha < 0 || c.DCAlpha >= 1 {
		errs = append(errs, fmt.Errorf("dc_alpha must be in [0,1), got %v", c.DCAlpha))
	}
	if c.TargetRMS <= 0 || c.TargetRMS > 1 {
		errs = append(errs, fmt.Errorf("target_rms must be in (0,1], got %v", c.TargetRMS))
	}
	if c.MaxGain < 1 {
		errs = append(errs, fmt.Errorf("max_gain must be >= 1, got %v", c.MaxGain))
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		errs = append(errs, fmt.Errorf("smoothing must be in [0,1), got %v", c.Smoothing))
	}
	if c.ClipThreshold <= 0 || c.ClipThreshold > 1 {
		errs = append(errs, fmt.Errorf("clip_threshold must be in (0,1], got %v", c.ClipThreshold))
	}
	if c.MinRMS <= 0 || c.MinRMS > 1 {
		errs = append(errs, fmt.Errorf("min_rms must be in (0,1], got %v", c.MinRMS))
	}
	return errors.Join(errs...)
}

// Conditioner removes DC offset, levels the signal, soft-clips peaks and gates silence.
// Stage order is fixed: DC blocker, AGC, soft clip, activity gate.
type Conditioner struct {
	cfg       ConditionerConfig
	mean      float64
	gain      float64
	threshold float64
}

// NewConditioner builds a conditioner with fresh DC and gain estimates.
func NewConditioner(cfg ConditionerConfig) *Conditioner {
	return &Conditioner{
		cfg:       cfg,
		gain:      1.0,
		threshold: cfg.ClipThreshold * math.MaxInt16,
	}
}

// Process conditions buf in place and reports whether it carries enough activity to forward.
// A buffer with zero energy is never forwarded.
func (c *Conditioner) Process(buf []int16) bool {
	if len(buf) == 0 {
		return false
	}
	c.blockDC(buf)
	c.applyGain(buf)
	c.softClip(buf)
	rms := RMS(buf)
	return rms > 0 && rms >= c.cfg.MinRMS
}

// Gain returns the current smoothed AGC gain.
func (c *Conditioner) Gain() float64 { return c.gain }

// DCOffset returns the running DC estimate in sample units.
func (c *Conditioner) DCOffset() float64 { return c.mean }

// Reset restores the initial DC and gain estimates.
func (c *Conditioner) Reset() {
	c.mean = 0
	c.gain = 1.0
}

func (c *Conditioner) blockDC(buf []int16) {
	alpha := c.cfg.DCAlpha
	for i, s := range buf {
		x := float64(s)
		c.mean = alpha*c.mean + (1-alpha)*x
		buf[i] = saturate(math.Round(x - c.mean))
	}
}

func (c *Conditioner) applyGain(buf []int16) {
	rms := math.Max(RMS(buf), rmsFloor)

	desired := c.cfg.TargetRMS / rms
	desired = math.Min(math.Max(desired, 1/c.cfg.MaxGain), c.cfg.MaxGain)

	c.gain = c.cfg.Smoothing*c.gain + (1-c.cfg.Smoothing)*desired

	for i, s := range buf {
		buf[i] = saturate(math.Round(float64(s) * c.gain))
	}
}

func (c *Conditioner) softClip(buf []int16) {
	t := c.threshold
	if t <= 0 {
		return
	}
	for i, s := range buf {
		x := float64(s)
		ax := math.Abs(x)
		if ax <= t {
			continue
		}
		over := ax - t
		y := t + over/(1+over/t)
		buf[i] = saturate(math.Round(math.Copysign(y, x)))
	}
}

// RMS returns the root-mean-square of buf normalized to [-1, 1].
func RMS(buf []int16) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		v := float64(s) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}
