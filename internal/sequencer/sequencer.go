package sequencer

import (
	"log/slog"

	"github.com/cbegin/szsynth-go/internal/control"
)

// Applier receives scheduled events; control.Surface satisfies it.
type Applier interface {
	Apply(ev control.Event) error
}

// Renderer produces mixer samples.
type Renderer interface {
	Render(dst []uint16)
}

// Sequencer plays a Script against an Applier while pulling samples from a
// Renderer, so every step lands on its exact tick.
type Sequencer struct {
	script   *Script
	applier  Applier
	renderer Renderer
	next     int
	tick     uint64
	rejected int
	logger   *slog.Logger
}

type Options struct {
	// Logger receives a debug record for every event the applier refuses.
	// Nil uses slog.Default.
	Logger *slog.Logger
}

func New(script *Script, applier Applier, renderer Renderer) *Sequencer {
	return NewWithOptions(script, applier, renderer, Options{})
}

func NewWithOptions(script *Script, applier Applier, renderer Renderer, opts Options) *Sequencer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{script: script, applier: applier, renderer: renderer, logger: logger}
}

// Render fills dst, applying every step whose tick falls inside the block
// right before that tick is rendered.
func (s *Sequencer) Render(dst []uint16) {
	for len(dst) > 0 {
		s.applyDue()
		n := len(dst)
		if s.next < len(s.script.Steps) {
			if until := s.script.Steps[s.next].Tick - s.tick; until < uint64(n) {
				n = int(until)
			}
		}
		s.renderer.Render(dst[:n])
		s.tick += uint64(n)
		dst = dst[n:]
	}
}

func (s *Sequencer) applyDue() {
	for s.next < len(s.script.Steps) && s.script.Steps[s.next].Tick <= s.tick {
		step := s.script.Steps[s.next]
		for _, ev := range step.Events {
			if err := s.applier.Apply(ev); err != nil {
				s.rejected++
				s.logger.Debug("scripted event dropped", "tick", step.Tick, "event", ev.String(), "err", err)
			}
		}
		s.next++
	}
}

// Tick is the number of samples rendered so far.
func (s *Sequencer) Tick() uint64 { return s.tick }

// Done reports whether every step has been applied.
func (s *Sequencer) Done() bool { return s.next >= len(s.script.Steps) }

// Rejected counts events the applier refused.
func (s *Sequencer) Rejected() int { return s.rejected }
