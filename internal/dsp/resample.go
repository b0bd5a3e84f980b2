// Package dsp holds the streaming numeric stages that sit between capture and recognition.
package dsp

import "math"

// Resampler converts mono PCM from one sample rate to another with linear interpolation.
// It is stateful across calls and must not be shared between sessions.
type Resampler struct {
	inRate  int
	outRate int
	step    float64

	// pos is the read position relative to the first sample of the next chunk.
	// It lies in [-1, 0) when the next output falls between the carried sample and that chunk.
	pos    float64
	last   int16
	primed bool
}

// NewResampler builds a resampler from inRate to outRate.
func NewResampler(inRate, outRate int) *Resampler {
	r := &Resampler{inRate: inRate, outRate: outRate}
	if inRate > 0 && outRate > 0 {
		r.step = float64(inRate) / float64(outRate)
	}
	return r
}

// Passthrough reports whether Process returns its input unchanged.
func (r *Resampler) Passthrough() bool {
	return r.inRate == r.outRate || r.step <= 0
}

// Process converts one chunk. Chunks shorter than two samples are returned unchanged.
func (r *Resampler) Process(chunk []int16) []int16 {
	if r.Passthrough() || len(chunk) < 2 {
		return chunk
	}

	src := chunk
	offset := 0.0
	if r.primed {
		src = make([]int16, 0, len(chunk)+1)
		src = append(src, r.last)
		src = append(src, chunk...)
		offset = 1
	}

	p := r.pos + offset
	if p < 0 {
		p = 0
	}

	out := make([]int16, 0, int(float64(len(chunk))/r.step)+2)
	for int(p)+1 < len(src) {
		i := int(p)
		frac := p - float64(i)
		a := float64(src[i])
		b := float64(src[i+1])
		out = append(out, saturate(math.Round(a+(b-a)*frac)))
		p += r.step
	}

	r.pos = p - offset - float64(len(chunk))
	if r.pos < -1 {
		r.pos = -1
	}
	r.last = chunk[len(chunk)-1]
	r.primed = true

	return out
}

// Reset discards the carried position and sample.
func (r *Resampler) Reset() {
	r.pos = 0
	r.last = 0
	r.primed = false
}

func saturate(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
