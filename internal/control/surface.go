package control

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cbegin/szsynth-go/internal/tables"
	"github.com/cbegin/szsynth-go/internal/voice"
)

// Sink receives the pool operations produced by the surface.
type Sink interface {
	Spawn(v *voice.Voice) error
	ForceRelease(note int) error
	ReplaceAll(v *voice.Voice) error
	Bend(delta int) error
}

// Surface owns the default settings and translates events into Sink calls.
// It is safe for concurrent use by several input sources.
type Surface struct {
	mu       sync.Mutex
	settings Settings
	sink     Sink
	logger   *slog.Logger
}

// NewSurface creates a surface driving sink. A nil logger uses slog.Default.
func NewSurface(sink Sink, settings Settings, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		settings: settings,
		sink:     sink,
		logger:   logger,
	}
}

// Settings returns a copy of the current defaults.
func (s *Surface) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Exec decodes and applies a line of text commands. Malformed commands are
// logged and dropped; the returned error reports the first one.
func (s *Surface) Exec(line string) error {
	events, perr := ParseLine(line)
	for _, ev := range events {
		if err := s.Apply(ev); err != nil {
			s.logger.Debug("control event dropped", "event", ev.String(), "err", err)
		}
	}
	if perr != nil {
		s.logger.Debug("malformed control line", "line", line, "err", perr)
	}
	return perr
}

// Apply performs one event. Parameter events only change the settings used by
// later notes, except SetVolume which also replaces every sounding voice with
// a probe tone.
func (s *Surface) Apply(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case NoteOn:
		params := s.settings.VoiceParams(ev.Value)
		if tables.ValidNote(ev.Value) {
			s.settings.LastNote = ev.Value
		}
		return s.sink.Spawn(voice.New(params))
	case NoteOff:
		return s.sink.ForceRelease(ev.Value)
	case PitchBend:
		return s.sink.Bend(ev.Value)
	case SetAttack:
		s.settings.Attack = atLeastOne(ev.Value)
	case SetDecay:
		s.settings.Decay = atLeastOne(ev.Value)
	case SetSustain:
		if ev.Value < 0 || ev.Value > 1000 {
			return fmt.Errorf("%w: sustain %d", ErrOutOfRange, ev.Value)
		}
		s.settings.SustainPermille = ev.Value
	case SetRelease:
		s.settings.Release = atLeastOne(ev.Value)
	case SetWaveform:
		k := voice.Kind(ev.Value)
		if !k.Valid() {
			return fmt.Errorf("%w: waveform %d", ErrOutOfRange, ev.Value)
		}
		s.settings.Waveform = k
	case SetDutyCycle:
		s.settings.DutyCycle = ev.Value
	case SetPortamento:
		s.settings.Portamento = atLeastOne(ev.Value)
	case SetVolume:
		if ev.Value < 0 || ev.Value > 1000 {
			return fmt.Errorf("%w: volume %d", ErrOutOfRange, ev.Value)
		}
		s.settings.Volume = float64(ev.Value) / 1000
		return s.sink.ReplaceAll(voice.New(ProbeParams(s.settings.Volume)))
	default:
		return fmt.Errorf("%w: %v", ErrUnknownCommand, ev.Type)
	}
	s.logger.Debug("default updated", "param", ev.Type.String(), "value", ev.Value)
	return nil
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
