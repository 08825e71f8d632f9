package control

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/szsynth-go/internal/voice"
)

// Controller numbers understood by FromMIDI.
const (
	CCVolume     = 7
	CCDutyCycle  = 12
	CCPortamento = 5
	CCSustain    = 70
	CCRelease    = 72
	CCAttack     = 73
	CCDecay      = 75
)

// FromMIDI translates a MIDI message into a control event. Messages without
// a mapping report false.
func FromMIDI(msg midi.Message) (Event, bool) {
	var ch, key, vel, cc, val, program uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return Event{Type: NoteOn, Value: int(key)}, true
	case msg.GetNoteEnd(&ch, &key):
		return Event{Type: NoteOff, Value: int(key)}, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		// 14-bit bend onto [BendMin, BendMax]
		return Event{Type: PitchBend, Value: int(rel) / 16}, true
	case msg.GetProgramChange(&ch, &program):
		return Event{Type: SetWaveform, Value: int(program) % (int(voice.Noise) + 1)}, true
	case msg.GetControlChange(&ch, &cc, &val):
		return controlChange(cc, int(val))
	}
	return Event{}, false
}

func controlChange(cc uint8, val int) (Event, bool) {
	switch cc {
	case CCVolume:
		return Event{Type: SetVolume, Value: val * 1000 / 127}, true
	case CCAttack:
		return Event{Type: SetAttack, Value: curveTicks(val, 8)}, true
	case CCDecay:
		return Event{Type: SetDecay, Value: curveTicks(val, 8)}, true
	case CCRelease:
		return Event{Type: SetRelease, Value: curveTicks(val, 8)}, true
	case CCSustain:
		return Event{Type: SetSustain, Value: val * 1000 / 127}, true
	case CCPortamento:
		return Event{Type: SetPortamento, Value: curveTicks(val, 4)}, true
	case CCDutyCycle:
		return Event{Type: SetDutyCycle, Value: voice.MinDutyCycle + val*(voice.MaxDutyCycle-voice.MinDutyCycle)/127}, true
	}
	return Event{}, false
}

// curveTicks maps a 7-bit controller value onto a quadratic tick range so
// short times get the finer resolution.
func curveTicks(val, scale int) int {
	return 1 + val*val*scale
}
