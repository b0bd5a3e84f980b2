package audio

// Format describes the interleaved frames delivered by a capture backend.
type Format struct {
	SampleRate int
	Channels   int
}

// Downmix converts interleaved float frames to mono 16-bit PCM.
// Stereo and wider input averages the first two channels. A trailing partial frame is ignored.
func Downmix(frames []float32, channels int) []int16 {
	if channels < 1 {
		channels = 1
	}
	n := len(frames) / channels
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		frame := frames[i*channels : (i+1)*channels]
		sample := frame[0]
		if channels >= 2 {
			sample = (frame[0] + frame[1]) * 0.5
		}
		out[i] = toPCM16(sample)
	}
	return out
}

func toPCM16(sample float32) int16 {
	switch {
	case sample > 1:
		sample = 1
	case sample < -1:
		sample = -1
	}
	return int16(sample * 32767)
}
