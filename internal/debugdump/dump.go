// Package debugdump writes conditioned utterance audio to WAV files for offline inspection.
package debugdump

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

const (
	sampleRate = 16000
	// maxSamples caps one dump at 30 s; older audio is discarded first.
	maxSamples = 30 * sampleRate
)

// Dumper accumulates mono 16 kHz samples and writes them as one WAV file per Flush.
type Dumper struct {
	fs  afero.Fs
	dir string
	now func() time.Time

	mu      sync.Mutex
	samples []int
}

// New returns a Dumper writing under dir on fs.
func New(fs afero.Fs, dir string) *Dumper {
	return &Dumper{fs: fs, dir: dir, now: time.Now}
}

// DefaultDir returns $XDG_STATE_HOME/aurora/debug, falling back to ~/.local/state.
func DefaultDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "aurora", "debug"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state", "aurora", "debug"), nil
}

// Dir returns the output directory.
func (d *Dumper) Dir() string {
	return d.dir
}

// Append buffers samples for the next Flush.
func (d *Dumper) Append(samples []int16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range samples {
		d.samples = append(d.samples, int(s))
	}
	if over := len(d.samples) - maxSamples; over > 0 {
		d.samples = append(d.samples[:0], d.samples[over:]...)
	}
}

// Discard drops buffered samples.
func (d *Dumper) Discard() {
	d.mu.Lock()
	d.samples = nil
	d.mu.Unlock()
}

// Flush writes buffered samples to a timestamped WAV file and returns its path.
// It returns "" when nothing is buffered.
func (d *Dumper) Flush(label string) (string, error) {
	d.mu.Lock()
	samples := d.samples
	d.samples = nil
	d.mu.Unlock()

	if len(samples) == 0 {
		return "", nil
	}

	if err := d.fs.MkdirAll(d.dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}

	name := fmt.Sprintf("utterance-%s", d.now().Format("20060102-150405.000"))
	if label = strings.TrimSpace(label); label != "" {
		name += "-" + label
	}
	path := filepath.Join(d.dir, name+".wav")

	file, err := d.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open debug file %q: %w", path, err)
	}
	defer file.Close()

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return "", fmt.Errorf("write debug audio %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("finalize debug audio %q: %w", path, err)
	}
	return path, nil
}
