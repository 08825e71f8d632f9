// Package control turns note and parameter events into voice pool operations.
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EventType identifies a control event.
type EventType int

const (
	NoteOn EventType = iota
	NoteOff
	PitchBend
	SetAttack
	SetDecay
	SetSustain
	SetRelease
	SetWaveform
	SetDutyCycle
	SetPortamento
	SetVolume
)

// command letters of the text protocol, indexed by EventType
var commandLetters = [...]byte{'N', 'F', 'P', 'A', 'D', 'S', 'R', 'W', 'C', 'O', 'V'}

var eventNames = [...]string{
	"note-on", "note-off", "pitch-bend", "attack", "decay", "sustain",
	"release", "waveform", "duty-cycle", "portamento", "volume",
}

func (t EventType) String() string {
	if t < NoteOn || t > SetVolume {
		return fmt.Sprintf("event(%d)", int(t))
	}
	return eventNames[t]
}

// Event is a decoded control event. Value is the note for note events, the
// bend delta for PitchBend and the new value for parameter events.
type Event struct {
	Type  EventType
	Value int
}

// String encodes e in the text protocol, e.g. "[N60]".
func (e Event) String() string {
	if e.Type < NoteOn || e.Type > SetVolume {
		return fmt.Sprintf("[?%d]", e.Value)
	}
	return fmt.Sprintf("[%c%d]", commandLetters[e.Type], e.Value)
}

var (
	ErrMalformed      = errors.New("control: malformed command")
	ErrUnknownCommand = errors.New("control: unknown command")
	ErrOutOfRange     = errors.New("control: value out of range")
)

// ParseCommand decodes one bracketed command such as "[N60]" or "[P-200]".
func ParseCommand(s string) (Event, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || s[0] != '[' || s[len(s)-1] != ']' {
		return Event{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	letter := s[1]
	value, err := strconv.Atoi(strings.TrimSpace(s[2 : len(s)-1]))
	if err != nil {
		return Event{}, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
	}
	for i, c := range commandLetters {
		if c == letter {
			return Event{Type: EventType(i), Value: value}, nil
		}
	}
	return Event{}, fmt.Errorf("%w: %q", ErrUnknownCommand, string(letter))
}

// ParseLine decodes every whitespace-separated command on a line. Bad
// commands are skipped; the events that did decode are returned together with
// the first error.
func ParseLine(line string) ([]Event, error) {
	var (
		out   []Event
		first error
	)
	for _, field := range strings.Fields(line) {
		ev, err := ParseCommand(field)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		out = append(out, ev)
	}
	return out, first
}
