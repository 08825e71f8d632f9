// Package szsynth is a polyphonic wavetable synthesizer voice engine. A Synth
// turns note and control events into a 44.1 kHz stream of unsigned 16-bit
// samples and plays it through a realtime audio backend.
package szsynth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	intaudio "github.com/cbegin/szsynth-go/internal/audio"
	"github.com/cbegin/szsynth-go/internal/control"
	"github.com/cbegin/szsynth-go/internal/mixer"
	"github.com/cbegin/szsynth-go/internal/tables"
)

// SampleRate is the fixed output rate in Hz.
const SampleRate = tables.SampleRate

type (
	Event     = control.Event
	EventType = control.EventType
	Settings  = control.Settings
	Stats     = mixer.Stats
)

type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
	// BackendNone renders only on demand through Synth.Render.
	BackendNone Backend = "none"
)

var (
	ErrRunning   = errors.New("szsynth: already running")
	ErrNoBackend = errors.New("szsynth: no audio backend")
)

// ParseBackend accepts "ebiten", "oto" or "none".
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendEbiten, BackendOto, BackendNone:
		return b, nil
	}
	return "", fmt.Errorf("invalid backend %q (expected ebiten|oto|none)", name)
}

type Option func(*config)

type config struct {
	backend   Backend
	logger    *slog.Logger
	sampleTap func([]uint16)
	mixer     mixer.Params
	settings  control.Settings
}

func defaultConfig() config {
	return config{
		backend:  BackendEbiten,
		logger:   slog.Default(),
		mixer:    mixer.DefaultParams(),
		settings: control.DefaultSettings(),
	}
}

func WithBackend(b Backend) Option {
	return func(cfg *config) {
		cfg.backend = b
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithSampleTap installs a callback invoked with each rendered block.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]uint16)) Option {
	return func(cfg *config) {
		cfg.sampleTap = tap
	}
}

// WithCapacity bounds the number of simultaneously sounding voices.
func WithCapacity(n int) Option {
	return func(cfg *config) {
		cfg.mixer.Capacity = n
	}
}

// WithQueueSize sets how many control commands may wait between two ticks.
func WithQueueSize(n int) Option {
	return func(cfg *config) {
		cfg.mixer.QueueSize = n
	}
}

// WithSettings replaces the power-on note defaults.
func WithSettings(s Settings) Option {
	return func(cfg *config) {
		cfg.settings = s
	}
}

// Synth owns a voice mixer, the control surface feeding it and, once
// started, a realtime output pulling from it.
type Synth struct {
	mu      sync.Mutex
	cfg     config
	mixer   *mixer.Mixer
	surface *control.Surface
	output  intaudio.Output
	logger  *slog.Logger
}

func New(opts ...Option) *Synth {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	m := mixer.New(cfg.mixer)
	return &Synth{
		cfg:     cfg,
		mixer:   m,
		surface: control.NewSurface(m, cfg.settings, cfg.logger),
		logger:  cfg.logger,
	}
}

// Start opens the configured backend and begins playback.
func (s *Synth) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output != nil {
		return ErrRunning
	}
	var (
		out intaudio.Output
		err error
	)
	switch s.cfg.backend {
	case BackendEbiten:
		out, err = intaudio.NewEbitenPlayer(intaudio.NewMixSource(s.mixer, s.cfg.sampleTap))
	case BackendOto:
		out, err = intaudio.NewOtoPlayer(s.mixer, s.cfg.sampleTap)
	default:
		return fmt.Errorf("%w: %q", ErrNoBackend, s.cfg.backend)
	}
	if err != nil {
		return fmt.Errorf("start %s backend: %w", s.cfg.backend, err)
	}
	out.Play()
	s.output = out
	s.logger.Info("audio started", "backend", s.cfg.backend, "sampleRate", SampleRate)
	return nil
}

// Stop halts playback. Stopping an idle synth is a no-op.
func (s *Synth) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output == nil {
		return nil
	}
	err := s.output.Stop()
	s.output = nil
	s.logger.Info("audio stopped")
	return err
}

// Render produces samples synchronously. It must not be used while a
// backend is running.
func (s *Synth) Render(dst []uint16) {
	s.mixer.Render(dst)
	if s.cfg.sampleTap != nil {
		s.cfg.sampleTap(dst)
	}
}

// Exec applies a line of text commands such as "[W3] [N60]".
func (s *Synth) Exec(line string) error { return s.surface.Exec(line) }

// Apply performs one control event.
func (s *Synth) Apply(ev Event) error { return s.surface.Apply(ev) }

func (s *Synth) NoteOn(note int) error {
	return s.surface.Apply(Event{Type: control.NoteOn, Value: note})
}

func (s *Synth) NoteOff(note int) error {
	return s.surface.Apply(Event{Type: control.NoteOff, Value: note})
}

// PitchBend bends every sounding voice; delta spans [-512, 511].
func (s *Synth) PitchBend(delta int) error {
	return s.surface.Apply(Event{Type: control.PitchBend, Value: delta})
}

// HandleMIDI applies a MIDI channel message. Unmapped messages are ignored.
func (s *Synth) HandleMIDI(msg midi.Message) {
	ev, ok := control.FromMIDI(msg)
	if !ok {
		s.logger.Debug("midi message ignored", "msg", msg.String())
		return
	}
	if err := s.surface.Apply(ev); err != nil {
		s.logger.Debug("midi event dropped", "event", ev.String(), "err", err)
	}
}

// Settings returns the defaults the next note will use.
func (s *Synth) Settings() Settings { return s.surface.Settings() }

// Stats returns mixer counters published by the render goroutine.
func (s *Synth) Stats() Stats { return s.mixer.Stats() }
