package szsynth

import (
	"fmt"
	"io"

	intaudio "github.com/cbegin/szsynth-go/internal/audio"
	"github.com/cbegin/szsynth-go/internal/control"
	"github.com/cbegin/szsynth-go/internal/mixer"
	"github.com/cbegin/szsynth-go/internal/sequencer"
)

// Script is a tick-stamped list of text commands.
type Script = sequencer.Script

// renderBlock is the number of samples rendered per WAV write.
const renderBlock = 4096

// ParseScript reads lines of "<time> <commands...>"; see sequencer.Parse.
func ParseScript(r io.Reader) (*Script, error) {
	return sequencer.Parse(r)
}

func newOfflineSequencer(script *Script, opts []Option) (*sequencer.Sequencer, *mixer.Mixer) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	// every event of a tick is queued before the mixer drains
	cfg.mixer.QueueSize = max(cfg.mixer.QueueSize, mixer.DefaultQueueSize, script.MaxBurst())
	m := mixer.New(cfg.mixer)
	surface := control.NewSurface(m, cfg.settings, cfg.logger)
	seq := sequencer.NewWithOptions(script, surface, m, sequencer.Options{Logger: cfg.logger})
	return seq, m
}

// RenderSamples plays script without an audio device and returns the first
// seconds of output.
func RenderSamples(script *Script, seconds float64, opts ...Option) []uint16 {
	seq, _ := newOfflineSequencer(script, opts)
	out := make([]uint16, int(float64(SampleRate)*seconds))
	seq.Render(out)
	return out
}

// RenderWAV renders seconds of script as a 16-bit mono WAV stream.
func RenderWAV(w io.WriteSeeker, script *Script, seconds float64, opts ...Option) error {
	seq, _ := newOfflineSequencer(script, opts)
	sink := intaudio.NewWAVSink(w)
	buf := make([]uint16, renderBlock)
	for remaining := int(float64(SampleRate) * seconds); remaining > 0; {
		n := min(remaining, len(buf))
		seq.Render(buf[:n])
		if err := sink.Write(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("render wav: %w", err)
	}
	return nil
}
