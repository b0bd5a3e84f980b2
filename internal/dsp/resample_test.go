package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func sineChunk(n int, rate, freq, amp float64, offset int) []int16 {
	out := make([]int16, n)
	for i := range out {
		t := float64(i+offset) / rate
		out[i] = int16(math.Round(amp * math.Sin(2*math.Pi*freq*t)))
	}
	return out
}

func TestResamplerIdentityWhenRatesMatch(t *testing.T) {
	r := NewResampler(16000, 16000)
	in := []int16{1, -2, 3, 32767, -32768}
	require.Equal(t, in, r.Process(in))
	require.True(t, r.Passthrough())
}

func TestResamplerShortChunkUnchanged(t *testing.T) {
	r := NewResampler(48000, 16000)
	require.Equal(t, []int16{42}, r.Process([]int16{42}))
	require.Empty(t, r.Process(nil))
}

func TestResamplerOutputLength(t *testing.T) {
	tests := []struct {
		name   string
		in     int
		out    int
		length int
	}{
		{name: "48k to 16k", in: 48000, out: 16000, length: 480},
		{name: "44.1k to 16k", in: 44100, out: 16000, length: 441},
		{name: "8k to 16k", in: 8000, out: 16000, length: 160},
		{name: "22.05k to 16k", in: 22050, out: 16000, length: 1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResampler(tc.in, tc.out)
			got := r.Process(make([]int16, tc.length))
			step := float64(tc.in) / float64(tc.out)
			want := float64(tc.length) / step
			// Upsampling holds back the outputs after the last sample until the next chunk arrives.
			require.InDelta(t, want, float64(len(got)), math.Max(1, math.Ceil(1/step)))
		})
	}
}

func TestResamplerStreamOutputLength(t *testing.T) {
	for _, rates := range [][2]int{{8000, 16000}, {48000, 16000}, {44100, 16000}} {
		r := NewResampler(rates[0], rates[1])
		step := float64(rates[0]) / float64(rates[1])

		const chunks, size = 50, 160
		total := 0
		for i := 0; i < chunks; i++ {
			total += len(r.Process(sineChunk(size, float64(rates[0]), 440, 8000, i*size)))
		}
		want := float64(chunks*size) / step
		require.InDelta(t, want, float64(total), math.Max(1, math.Ceil(1/step)), "rates %v", rates)
	}
}

func TestResamplerChunkBoundaryInvariance(t *testing.T) {
	for _, rates := range [][2]int{{48000, 16000}, {44100, 16000}, {8000, 16000}, {32000, 16000}} {
		signal := sineChunk(4410, float64(rates[0]), 440, 12000, 0)

		whole := NewResampler(rates[0], rates[1]).Process(signal)

		split := NewResampler(rates[0], rates[1])
		var pieces []int16
		for _, size := range []int{137, 480, 3, 999, 64, 2} {
			if len(signal) == 0 {
				break
			}
			if size > len(signal) {
				size = len(signal)
			}
			pieces = append(pieces, split.Process(signal[:size])...)
			signal = signal[size:]
		}
		pieces = append(pieces, split.Process(signal)...)

		require.InDelta(t, len(whole), len(pieces), 1, "rates %v", rates)
		n := min(len(whole), len(pieces))
		for i := 0; i < n; i++ {
			require.InDelta(t, whole[i], pieces[i], 1, "rates %v sample %d", rates, i)
		}
	}
}

func TestResamplerSplitEvenChunksMatchExactly(t *testing.T) {
	signal := sineChunk(9600, 48000, 300, 10000, 0)
	whole := NewResampler(48000, 16000).Process(signal)

	split := NewResampler(48000, 16000)
	var pieces []int16
	for i := 0; i < len(signal); i += 480 {
		pieces = append(pieces, split.Process(signal[i:i+480])...)
	}

	require.Equal(t, whole, pieces)
}

func TestResamplerInterpolatesLinearly(t *testing.T) {
	r := NewResampler(2, 4)
	got := r.Process([]int16{0, 100, 32767})
	require.Equal(t, []int16{0, 50, 100, 16434}, got)
}

func TestResamplerReset(t *testing.T) {
	r := NewResampler(48000, 16000)
	first := r.Process(sineChunk(480, 48000, 440, 8000, 0))
	r.Reset()
	second := r.Process(sineChunk(480, 48000, 440, 8000, 0))
	require.Equal(t, first, second)
}
