// Package voice implements a single wavetable oscillator with an ADSR
// envelope and linear pitch glide. A Voice is advanced once per sample period
// by its owning pool and is not safe for concurrent use.
package voice

import (
	"math"

	"github.com/cbegin/szsynth-go/internal/tables"
)

const (
	// MinDutyCycle and MaxDutyCycle bound the square wave's high portion, in
	// table entries out of tables.TableSize.
	MinDutyCycle = 1
	MaxDutyCycle = 2046

	// BendMin and BendMax bound the pitch-bend delta accepted by Bend.
	BendMin = -512
	BendMax = 511
)

// envEpsilon absorbs float drift so stage lengths come out in whole ticks.
const envEpsilon = 1e-9

// noiseSegment is the phase distance between two noise generator clocks.
const noiseSegment = tables.TableSize / 32

// State is the envelope stage of a voice.
type State int

const (
	// Attack ramps the amplitude from 0 to the ceiling.
	Attack State = iota
	// Decay falls from the ceiling to the sustain level.
	Decay
	// Sustain holds until the voice is released.
	Sustain
	// Release falls to 0, after which the voice is finished.
	Release
)

func (s State) String() string {
	switch s {
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// Params describes a voice at construction time. Timings are in ticks.
type Params struct {
	Kind         Kind
	Note         int
	Frequency    float64
	DutyCycle    int
	AmplitudeMax float64
	Attack       int
	Decay        int
	SustainLevel float64
	Release      int
	// GlideFrom is the note the voice slides from when GlideTicks > 1.
	GlideFrom  int
	GlideTicks int
}

// Voice is one sounding note instance.
type Voice struct {
	kind      Kind
	note      int
	frequency float64
	dutyCycle int

	amplitudeMax float64
	amplitude    float64
	phase        float64
	increment    float64

	attack       int
	decay        int
	release      int
	sustainLevel float64
	absSustain   float64
	state        State

	glideFrom  int
	glideTicks int
	glidePos   int

	noise    uint16
	finished bool
}

// New builds a voice from p. Invalid input never fails: a voice with an
// inaudible frequency, a non-positive amplitude ceiling or an unknown note is
// returned already finished so the pool drops it on its first tick.
func New(p Params) *Voice {
	v := &Voice{
		kind:       p.Kind,
		note:       p.Note,
		frequency:  p.Frequency,
		dutyCycle:  clampInt(p.DutyCycle, MinDutyCycle, MaxDutyCycle),
		attack:     maxInt(p.Attack, 1),
		decay:      maxInt(p.Decay, 1),
		release:    maxInt(p.Release, 1),
		state:      Attack,
		glideFrom:  p.GlideFrom,
		glideTicks: p.GlideTicks,
		noise:      uint16(0xACE1 + p.Note*97),
	}
	if !v.kind.Valid() {
		v.kind = Sine
	}
	if v.noise == 0 {
		v.noise = 0xACE1
	}
	if !tables.ValidNote(p.Note) {
		v.finished = true
	}
	if math.IsNaN(p.Frequency) || p.Frequency < 0 || p.Frequency > tables.MaxFrequency {
		v.finished = true
		v.frequency = 0
	}

	switch {
	case math.IsNaN(p.AmplitudeMax) || p.AmplitudeMax <= 0:
		v.finished = true
	case p.AmplitudeMax > 1:
		v.amplitudeMax = 1
	default:
		v.amplitudeMax = p.AmplitudeMax
	}

	// a rejected voice spends its one tick at zero amplitude
	if v.finished {
		v.amplitudeMax = 0
	}

	v.sustainLevel = clampFloat(p.SustainLevel, 0, 1)
	if math.IsNaN(p.SustainLevel) {
		v.sustainLevel = 0
	}
	v.absSustain = v.amplitudeMax * v.sustainLevel

	if v.glideTicks > 1 && !v.finished {
		if tables.ValidNote(v.glideFrom) {
			v.frequency = tables.Frequency(v.glideFrom)
		} else {
			v.glideTicks = 0
		}
	}
	return v
}

// Tick advances the voice by one sample period: phase, glide, then envelope.
func (v *Voice) Tick() {
	v.increment = v.frequency * tables.TableSize / tables.SampleRate
	segment := int(v.phase) / noiseSegment
	v.phase += v.increment
	for v.phase >= tables.TableSize {
		v.phase -= tables.TableSize
	}
	if v.kind == Noise && int(v.phase)/noiseSegment != segment {
		v.clockNoise()
	}

	v.glide()
	v.advanceEnvelope()
}

func (v *Voice) glide() {
	if v.note == v.glideFrom || v.glideTicks <= 1 || v.glidePos >= v.glideTicks {
		return
	}
	target := tables.Frequency(v.note)
	if v.frequency == target {
		return
	}
	v.glidePos++
	if v.glidePos >= v.glideTicks {
		v.frequency = target
		return
	}
	v.frequency = tables.Rescale(float64(v.glidePos), 0, float64(v.glideTicks), tables.Frequency(v.glideFrom), target)
}

func (v *Voice) advanceEnvelope() {
	switch v.state {
	case Attack:
		v.amplitude += v.amplitudeMax / float64(v.attack)
		if v.amplitude >= v.amplitudeMax-envEpsilon {
			v.amplitude = v.amplitudeMax
			if v.sustainLevel > 0 {
				v.state = Decay
			} else {
				// one-shot note: no decay or sustain
				v.state = Release
			}
		}
	case Decay:
		v.amplitude -= (v.amplitudeMax - v.absSustain) / float64(v.decay)
		if v.amplitude <= v.absSustain+envEpsilon {
			v.amplitude = v.absSustain
			v.state = Sustain
		}
	case Sustain:
		// held until Release
	case Release:
		step := v.amplitudeMax
		if v.sustainLevel > 0 {
			step = v.absSustain
		}
		v.amplitude -= step / float64(v.release)
		if v.amplitude <= envEpsilon {
			v.amplitude = 0
			v.finished = true
		}
	}
}

// clockNoise steps the 16-bit LFSR.
func (v *Voice) clockNoise() {
	bit := (v.noise ^ (v.noise >> 1)) & 1
	v.noise = (v.noise >> 1) | (bit << 15)
}

// Sample returns the voice's contribution to the current tick in
// [0, tables.OutputMax]. It does not modify the voice.
func (v *Voice) Sample() uint32 {
	idx := int(v.phase + 0.5)
	switch v.kind {
	case Square:
		if idx > v.dutyCycle {
			return 0
		}
		return uint32(tables.OutputMax * v.amplitude)
	case Noise:
		if v.noise&1 == 0 {
			return 0
		}
		return uint32(tables.OutputMax * v.amplitude)
	default:
		return uint32(float64(tables.Lookup(v.kind.waveform(), idx)) * v.amplitude)
	}
}

// Release moves a sustained voice into its release stage. Non-sustained
// voices finish on their own and are left untouched.
func (v *Voice) Release() {
	if v.sustainLevel > 0 && v.state != Release {
		v.state = Release
	}
}

// Bend sets the transient frequency between the note's table neighbours.
// delta is clamped to [BendMin, BendMax]; zero restores the table frequency.
func (v *Voice) Bend(delta int) {
	if v.finished {
		return
	}
	delta = clampInt(delta, BendMin, BendMax)
	base := tables.Frequency(v.note)
	var offset float64
	if delta >= 0 {
		offset = (tables.Frequency(v.note+1) - base) * float64(delta) / BendMax
	} else {
		offset = (tables.Frequency(v.note-1) - base) * float64(delta) / BendMin
	}
	v.frequency = clampFloat(base+offset, 0, tables.MaxFrequency)
}

// Kind returns the waveform the voice plays.
func (v *Voice) Kind() Kind { return v.kind }

// Note returns the note the voice was started with; releases match on it.
func (v *Voice) Note() int { return v.note }

// Frequency returns the current frequency in Hz, including glide and bend.
func (v *Voice) Frequency() float64 { return v.frequency }

// DutyCycle returns the clamped square-wave duty cycle.
func (v *Voice) DutyCycle() int { return v.dutyCycle }

// Amplitude returns the current envelope level in [0, AmplitudeMax].
func (v *Voice) Amplitude() float64 { return v.amplitude }

// AmplitudeMax returns the envelope ceiling. Rejected voices report 0.
func (v *Voice) AmplitudeMax() float64 { return v.amplitudeMax }

// SustainLevel returns the sustain level relative to AmplitudeMax.
func (v *Voice) SustainLevel() float64 { return v.sustainLevel }

// Phase returns the table position in [0, tables.TableSize).
func (v *Voice) Phase() float64 { return v.phase }

// State returns the envelope stage.
func (v *Voice) State() State { return v.state }

// Sustained reports whether the voice holds until released.
func (v *Voice) Sustained() bool { return v.sustainLevel > 0 }

// Finished reports whether the voice is silent and must be reclaimed.
func (v *Voice) Finished() bool { return v.finished }

// Kill marks the voice for removal on the next tick.
func (v *Voice) Kill() { v.finished = true }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
