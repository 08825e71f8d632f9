// Package tables holds the immutable lookup data shared by every voice: the
// note-to-frequency table and the single-cycle waveform tables.
package tables

import "math"

const (
	// SampleRate is the fixed output rate in Hz.
	SampleRate = 44100
	// TableSize is the length of every tabled waveform.
	TableSize = 2048
	// OutputMax is the largest output sample value (unsigned 16-bit).
	OutputMax = 65535
	// MaxFrequency is the highest playable frequency (Nyquist).
	MaxFrequency = SampleRate / 2
	// NoteCount is the number of addressable notes.
	NoteCount = 128
)

// noteFrequencies maps note index to its integer frequency in Hz.
var noteFrequencies = [NoteCount]float64{
	8, 9, 9, 10, 10, 11, 12, 12, 13, 14, 15, 15, 16, 17, 18, 19,
	21, 22, 23, 24, 26, 28, 29, 31, 33, 35, 37, 39, 41, 44, 46, 49,
	52, 55, 58, 62, 65, 69, 73, 78, 82, 87, 92, 98, 104, 110, 117, 123,
	131, 139, 147, 156, 165, 175, 185, 196, 208, 220, 233, 247, 262, 277, 294, 311,
	330, 349, 370, 392, 415, 440, 466, 494, 523, 554, 587, 622, 659, 698, 740, 784,
	831, 880, 932, 988, 1047, 1109, 1175, 1245, 1319, 1397, 1480, 1568, 1661, 1760, 1865, 1976,
	2093, 2217, 2349, 2489, 2637, 2794, 2960, 3136, 3322, 3520, 3729, 3951, 4186, 4435, 4699, 4978,
	5274, 5588, 5920, 6272, 6645, 7040, 7459, 7902, 8372, 8870, 9397, 9956, 10548, 11175, 11840, 12544,
}

// Frequency returns the table frequency of note. Out-of-range notes are
// clamped to the nearest valid index.
func Frequency(note int) float64 {
	if note < 0 {
		note = 0
	}
	if note >= NoteCount {
		note = NoteCount - 1
	}
	return noteFrequencies[note]
}

// ValidNote reports whether note addresses the frequency table.
func ValidNote(note int) bool {
	return note >= 0 && note < NoteCount
}

// Waveform selects one of the tabled single-cycle waves.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Saw
)

var waves [3][TableSize]uint16

func init() {
	for i := 0; i < TableSize; i++ {
		pos := float64(i) / TableSize
		waves[Sine][i] = quantize((1 + math.Sin(2*math.Pi*pos)) / 2)
		if pos < 0.5 {
			waves[Triangle][i] = quantize(2 * pos)
		} else {
			waves[Triangle][i] = quantize(2 - 2*pos)
		}
		waves[Saw][i] = quantize(float64(i) / (TableSize - 1))
	}
}

func quantize(unit float64) uint16 {
	return uint16(math.Round(unit * OutputMax))
}

// Lookup returns the sample of wave w at index idx. idx is wrapped into
// [0, TableSize).
func Lookup(w Waveform, idx int) uint16 {
	idx %= TableSize
	if idx < 0 {
		idx += TableSize
	}
	return waves[w][idx]
}

// Rescale maps x linearly from [inMin, inMax] onto [outMin, outMax] without
// clamping.
func Rescale(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}
