package control

import (
	"github.com/cbegin/szsynth-go/internal/tables"
	"github.com/cbegin/szsynth-go/internal/voice"
)

// Settings are the defaults applied to every new note. The surface hands out
// copies; a voice never observes later changes.
type Settings struct {
	Waveform voice.Kind
	// Volume is the amplitude ceiling of new voices (0..1).
	Volume float64
	// Envelope timings in ticks.
	Attack  int
	Decay   int
	Release int
	// SustainPermille is the sustain level in thousandths (0..1000).
	SustainPermille int
	DutyCycle       int
	// Portamento is the glide length in ticks; 1 disables glide.
	Portamento int
	// LastNote is the note the next voice glides from.
	LastNote int
}

// DefaultSettings mirrors the power-on state of the instrument.
func DefaultSettings() Settings {
	return Settings{
		Waveform:        voice.Sine,
		Volume:          0.24,
		Attack:          1,
		Decay:           1,
		Release:         1,
		SustainPermille: 1000,
		DutyCycle:       1023,
		Portamento:      1,
		LastNote:        10,
	}
}

// VoiceParams builds the construction parameters for note.
func (s Settings) VoiceParams(note int) voice.Params {
	freq := -1.0
	if tables.ValidNote(note) {
		freq = tables.Frequency(note)
	}
	return voice.Params{
		Kind:         s.Waveform,
		Note:         note,
		Frequency:    freq,
		DutyCycle:    s.DutyCycle,
		AmplitudeMax: s.Volume,
		Attack:       s.Attack,
		Decay:        s.Decay,
		SustainLevel: float64(s.SustainPermille) / 1000,
		Release:      s.Release,
		GlideFrom:    s.LastNote,
		GlideTicks:   s.Portamento,
	}
}

// probeNote is the note of the tone played after a volume change.
const probeNote = 65

// ProbeParams describes the short one-shot tone that confirms a volume change.
func ProbeParams(volume float64) voice.Params {
	return voice.Params{
		Kind:         voice.Triangle,
		Note:         probeNote,
		Frequency:    tables.Frequency(probeNote),
		DutyCycle:    1023,
		AmplitudeMax: volume,
		Attack:       5000,
		Decay:        100,
		SustainLevel: 0,
		Release:      5000,
		GlideFrom:    probeNote,
		GlideTicks:   0,
	}
}
