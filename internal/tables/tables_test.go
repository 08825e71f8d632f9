package tables

import "testing"

func TestFrequencyTableShape(t *testing.T) {
	prev := Frequency(0)
	for n := 1; n < NoteCount; n++ {
		f := Frequency(n)
		if f < prev {
			t.Fatalf("frequency table decreases at note %d: %v < %v", n, f, prev)
		}
		prev = f
	}
	if got := Frequency(69); got != 440 {
		t.Fatalf("note 69 = %v Hz, want 440", got)
	}
	if got := Frequency(60); got != 262 {
		t.Fatalf("note 60 = %v Hz, want 262", got)
	}
}

func TestFrequencyClampsIndex(t *testing.T) {
	if Frequency(-5) != Frequency(0) {
		t.Errorf("negative note should clamp to note 0")
	}
	if Frequency(500) != Frequency(NoteCount-1) {
		t.Errorf("large note should clamp to note %d", NoteCount-1)
	}
}

func TestWaveformsSpanOutputRange(t *testing.T) {
	for _, w := range []Waveform{Sine, Triangle, Saw} {
		lo, hi := uint16(OutputMax), uint16(0)
		for i := 0; i < TableSize; i++ {
			v := Lookup(w, i)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if lo > 16 || hi < OutputMax-16 {
			t.Errorf("waveform %d spans [%d, %d], want ~[0, %d]", w, lo, hi, OutputMax)
		}
	}
}

func TestLookupWrapsIndex(t *testing.T) {
	if Lookup(Saw, TableSize) != Lookup(Saw, 0) {
		t.Errorf("index TableSize should wrap to 0")
	}
	if Lookup(Saw, -1) != Lookup(Saw, TableSize-1) {
		t.Errorf("index -1 should wrap to TableSize-1")
	}
}

func TestRescale(t *testing.T) {
	if got := Rescale(50, 0, 100, 220, 440); got != 330 {
		t.Fatalf("Rescale midpoint = %v, want 330", got)
	}
	if got := Rescale(200, 0, 100, 0, 10); got != 20 {
		t.Fatalf("Rescale should extrapolate, got %v", got)
	}
	if got := Rescale(5, 3, 3, 7, 9); got != 7 {
		t.Fatalf("degenerate input range = %v, want 7", got)
	}
}
