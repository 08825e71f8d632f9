// Package mixer owns the active voices, advances them once per sample period
// and mixes their contributions into a single clipped output sample.
package mixer

import (
	"errors"

	"github.com/cbegin/szsynth-go/internal/tables"
	"github.com/cbegin/szsynth-go/internal/voice"
)

// DefaultCapacity bounds the number of simultaneously live voices.
const DefaultCapacity = 64

var ErrPoolFull = errors.New("mixer: voice pool is full")

// Pool is the render-side voice collection. It is not safe for concurrent use;
// the Mixer serializes access to it.
type Pool struct {
	voices   []*voice.Voice
	capacity int
	sample   uint16
	clipped  uint64
}

// NewPool creates a pool holding at most capacity voices.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		voices:   make([]*voice.Voice, 0, 8),
		capacity: capacity,
	}
}

// Tick advances every voice, mixes and hard-clips the sum, then drops the
// voices that finished during this tick. Finished voices still contribute
// their final sample.
func (p *Pool) Tick() uint16 {
	var sum uint64
	for _, v := range p.voices {
		v.Tick()
		sum += uint64(v.Sample())
	}
	if sum > tables.OutputMax {
		sum = tables.OutputMax
		p.clipped++
	}

	// Stable in-place filter: every voice above was visited before any removal.
	kept := p.voices[:0]
	for _, v := range p.voices {
		if !v.Finished() {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(p.voices); i++ {
		p.voices[i] = nil
	}
	p.voices = kept

	p.sample = uint16(sum)
	return p.sample
}

// Spawn appends v. It returns ErrPoolFull when the pool is at capacity.
func (p *Pool) Spawn(v *voice.Voice) error {
	if len(p.voices) >= p.capacity {
		return ErrPoolFull
	}
	p.voices = append(p.voices, v)
	return nil
}

// ForceRelease moves every sustained voice playing note into release.
func (p *Pool) ForceRelease(note int) {
	for _, v := range p.voices {
		if v.Note() == note {
			v.Release()
		}
	}
}

// ReplaceAll marks every current voice for removal and spawns v. The old
// voices are reclaimed on the next tick, so v always fits.
func (p *Pool) ReplaceAll(v *voice.Voice) {
	for _, old := range p.voices {
		old.Kill()
	}
	p.voices = append(p.voices, v)
}

// Bend applies a pitch-bend delta to every voice.
func (p *Pool) Bend(delta int) {
	for _, v := range p.voices {
		v.Bend(delta)
	}
}

// Len returns the number of voices currently held.
func (p *Pool) Len() int { return len(p.voices) }

// Sample returns the most recently mixed sample.
func (p *Pool) Sample() uint16 { return p.sample }

// Clipped returns how many ticks were hard-clipped.
func (p *Pool) Clipped() uint64 { return p.clipped }

// Voices returns the live voices. The slice is only valid until the next Tick.
func (p *Pool) Voices() []*voice.Voice { return p.voices }
