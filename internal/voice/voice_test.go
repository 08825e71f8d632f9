package voice

import (
	"math"
	"testing"

	"github.com/cbegin/szsynth-go/internal/tables"
)

func sustainedParams() Params {
	return Params{
		Kind:         Sine,
		Note:         60,
		Frequency:    tables.Frequency(60),
		DutyCycle:    1023,
		AmplitudeMax: 0.24,
		Attack:       1,
		Decay:        1,
		SustainLevel: 1,
		Release:      1,
		GlideFrom:    60,
		GlideTicks:   1,
	}
}

func ticksUntilFinished(t *testing.T, v *Voice, limit int) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		v.Tick()
		if v.Finished() {
			return i
		}
	}
	t.Fatalf("voice did not finish within %d ticks (state=%v amp=%v)", limit, v.State(), v.Amplitude())
	return 0
}

func TestNewClampsParameters(t *testing.T) {
	p := sustainedParams()
	p.DutyCycle = 0
	p.AmplitudeMax = 3
	p.SustainLevel = 2
	p.Attack, p.Decay, p.Release = 0, -4, 0
	v := New(p)
	if v.Finished() {
		t.Fatalf("clamped voice should be playable")
	}
	if v.DutyCycle() != MinDutyCycle {
		t.Errorf("duty = %d, want %d", v.DutyCycle(), MinDutyCycle)
	}
	if v.AmplitudeMax() != 1 {
		t.Errorf("amplitude max = %v, want 1", v.AmplitudeMax())
	}
	if v.SustainLevel() != 1 {
		t.Errorf("sustain = %v, want 1", v.SustainLevel())
	}
	if v.attack != 1 || v.decay != 1 || v.release != 1 {
		t.Errorf("timings = %d/%d/%d, want 1/1/1", v.attack, v.decay, v.release)
	}

	p.DutyCycle = 5000
	if got := New(p).DutyCycle(); got != MaxDutyCycle {
		t.Errorf("duty = %d, want %d", got, MaxDutyCycle)
	}
}

func TestNewRejectsInvalidVoices(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Params)
	}{
		{"frequency above nyquist", func(p *Params) { p.Frequency = 30000 }},
		{"negative frequency", func(p *Params) { p.Frequency = -1 }},
		{"nan frequency", func(p *Params) { p.Frequency = math.NaN() }},
		{"zero amplitude", func(p *Params) { p.AmplitudeMax = 0 }},
		{"negative amplitude", func(p *Params) { p.AmplitudeMax = -0.5 }},
		{"note out of range", func(p *Params) { p.Note = 128 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := sustainedParams()
			tc.mutate(&p)
			v := New(p)
			if !v.Finished() {
				t.Fatalf("expected voice to be marked for removal")
			}
			if v.Amplitude() != 0 || v.AmplitudeMax() != 0 {
				t.Fatalf("rejected voice amplitude = %v (max %v), want 0", v.Amplitude(), v.AmplitudeMax())
			}
			v.Tick()
			if got := v.Sample(); got != 0 || v.Amplitude() != 0 {
				t.Fatalf("rejected voice sounded after a tick: sample=%d amp=%v", got, v.Amplitude())
			}
		})
	}
}

func TestInitialState(t *testing.T) {
	v := New(sustainedParams())
	if v.State() != Attack || v.Amplitude() != 0 || v.Phase() != 0 {
		t.Fatalf("initial state=%v amp=%v phase=%v", v.State(), v.Amplitude(), v.Phase())
	}
	if v.Frequency() != 262 {
		t.Fatalf("initial frequency = %v, want 262", v.Frequency())
	}
}

func TestInvariantsHoldEveryTick(t *testing.T) {
	freqs := []float64{0, 8, 262, 4186, 12544, tables.MaxFrequency}
	for _, kind := range []Kind{Sine, Triangle, Saw, Square, Noise} {
		for _, f := range freqs {
			p := Params{
				Kind:         kind,
				Note:         69,
				Frequency:    f,
				DutyCycle:    700,
				AmplitudeMax: 0.9,
				Attack:       37,
				Decay:        53,
				SustainLevel: 0.4,
				Release:      91,
				GlideFrom:    69,
			}
			v := New(p)
			for i := 0; i < 20000; i++ {
				if i == 5000 {
					v.Release()
				}
				v.Tick()
				if a := v.Amplitude(); a < 0 || a > v.AmplitudeMax() {
					t.Fatalf("%v@%vHz tick %d: amplitude %v outside [0, %v]", kind, f, i, a, v.AmplitudeMax())
				}
				if ph := v.Phase(); ph < 0 || ph >= tables.TableSize {
					t.Fatalf("%v@%vHz tick %d: phase %v outside [0, %d)", kind, f, i, ph, tables.TableSize)
				}
				if s := v.Sample(); s > tables.OutputMax {
					t.Fatalf("%v@%vHz tick %d: sample %d above output max", kind, f, i, s)
				}
			}
		}
	}
}

func TestOneShotSkipsDecayAndSustain(t *testing.T) {
	p := sustainedParams()
	p.AmplitudeMax = 0.5
	p.Attack = 10
	p.SustainLevel = 0
	p.Release = 20
	v := New(p)
	for i := 1; ; i++ {
		v.Tick()
		if s := v.State(); s == Decay || s == Sustain {
			t.Fatalf("one-shot voice entered %v at tick %d", s, i)
		}
		if v.Finished() {
			if i != p.Attack+p.Release {
				t.Fatalf("one-shot finished after %d ticks, want %d", i, p.Attack+p.Release)
			}
			break
		}
		if i > 1000 {
			t.Fatalf("one-shot voice never finished")
		}
	}
	if v.Amplitude() != 0 {
		t.Fatalf("finished amplitude = %v, want 0", v.Amplitude())
	}
}

func TestSustainReachedAfterAttackPlusDecay(t *testing.T) {
	p := sustainedParams()
	p.AmplitudeMax = 0.8
	p.Attack = 10
	p.Decay = 5
	p.SustainLevel = 0.5
	p.Release = 4
	v := New(p)
	for i := 1; i < p.Attack+p.Decay; i++ {
		v.Tick()
		if v.State() == Sustain {
			t.Fatalf("reached sustain early at tick %d", i)
		}
	}
	v.Tick()
	if v.State() != Sustain {
		t.Fatalf("state after %d ticks = %v, want sustain", p.Attack+p.Decay, v.State())
	}
	if want := 0.8 * 0.5; v.Amplitude() != want {
		t.Fatalf("sustain amplitude = %v, want %v", v.Amplitude(), want)
	}
	for i := 0; i < 100000; i++ {
		v.Tick()
	}
	if v.State() != Sustain || v.Finished() {
		t.Fatalf("voice left sustain without release: state=%v finished=%v", v.State(), v.Finished())
	}

	v.Release()
	if v.State() != Release {
		t.Fatalf("state after Release = %v, want release", v.State())
	}
	if got := ticksUntilFinished(t, v, 100); got != p.Release {
		t.Fatalf("release took %d ticks, want %d", got, p.Release)
	}
}

func TestReleaseIgnoresNonSustainedVoices(t *testing.T) {
	p := sustainedParams()
	p.Attack = 50
	p.SustainLevel = 0
	v := New(p)
	v.Tick()
	v.Release()
	if v.State() != Attack {
		t.Fatalf("Release changed one-shot voice to %v", v.State())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := sustainedParams()
	p.Release = 10
	v := New(p)
	v.Tick()
	v.Tick()
	v.Release()
	v.Tick()
	amp := v.Amplitude()
	v.Release()
	if v.State() != Release || v.Amplitude() != amp {
		t.Fatalf("second Release changed voice: state=%v amp=%v want %v", v.State(), v.Amplitude(), amp)
	}
}

func TestForcedReleaseScenario(t *testing.T) {
	v := New(sustainedParams())
	v.Tick()
	v.Tick()
	if v.State() != Sustain {
		t.Fatalf("state = %v, want sustain", v.State())
	}
	if v.Amplitude() != v.AmplitudeMax() {
		t.Fatalf("amplitude = %v, want %v", v.Amplitude(), v.AmplitudeMax())
	}
	v.Release()
	v.Tick()
	if !v.Finished() {
		t.Fatalf("voice should finish after one release tick, amp=%v", v.Amplitude())
	}
}

func TestGlideClampsAtDuration(t *testing.T) {
	p := sustainedParams()
	p.GlideFrom = 57
	p.GlideTicks = 100
	v := New(p)
	if got, want := v.Frequency(), tables.Frequency(57); got != want {
		t.Fatalf("frequency at tick 0 = %v, want %v", got, want)
	}
	for i := 0; i < 50; i++ {
		v.Tick()
	}
	mid := (tables.Frequency(57) + tables.Frequency(60)) / 2
	if math.Abs(v.Frequency()-mid) > 1e-9 {
		t.Fatalf("frequency at tick 50 = %v, want %v", v.Frequency(), mid)
	}
	for i := 0; i < 50; i++ {
		v.Tick()
	}
	if got, want := v.Frequency(), tables.Frequency(60); got != want {
		t.Fatalf("frequency at tick 100 = %v, want %v", got, want)
	}
	for i := 0; i < 500; i++ {
		v.Tick()
	}
	if got, want := v.Frequency(), tables.Frequency(60); got != want {
		t.Fatalf("glide overshot: frequency = %v, want %v", got, want)
	}
}

func TestGlideDisabled(t *testing.T) {
	for _, tc := range []struct {
		name  string
		from  int
		ticks int
	}{
		{"duration one", 40, 1},
		{"same note", 60, 100},
		{"invalid origin", -3, 100},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := sustainedParams()
			p.GlideFrom = tc.from
			p.GlideTicks = tc.ticks
			v := New(p)
			for i := 0; i < 10; i++ {
				v.Tick()
				if v.Frequency() != 262 {
					t.Fatalf("tick %d: frequency = %v, want 262", i, v.Frequency())
				}
			}
		})
	}
}

func TestSquareDutyCycleSplitsCycle(t *testing.T) {
	p := sustainedParams()
	p.Kind = Square
	p.DutyCycle = 1023
	p.AmplitudeMax = 1
	// one table step per tick
	p.Frequency = float64(tables.SampleRate) / tables.TableSize
	v := New(p)
	var high, low int
	for i := 0; i < tables.TableSize; i++ {
		v.Tick()
		if s := v.Sample(); s > 0 {
			if s != tables.OutputMax {
				t.Fatalf("square high level = %d, want %d", s, tables.OutputMax)
			}
			high++
		} else {
			low++
		}
	}
	if high < 1000 || high > 1050 {
		t.Fatalf("square high for %d of %d ticks, want about half", high, tables.TableSize)
	}
	if low < 1000 {
		t.Fatalf("square low for %d ticks, want about half", low)
	}
}

func TestTabledSampleScalesWithAmplitude(t *testing.T) {
	p := sustainedParams()
	p.Kind = Saw
	p.Frequency = float64(tables.SampleRate) / tables.TableSize * 100
	p.AmplitudeMax = 0.5
	v := New(p)
	v.Tick()
	want := uint32(float64(tables.Lookup(tables.Saw, int(v.Phase()+0.5))) * 0.5)
	if got := v.Sample(); got != want {
		t.Fatalf("saw sample = %d, want %d", got, want)
	}
}

func TestNoiseIsDeterministicAndBipolar(t *testing.T) {
	p := sustainedParams()
	p.Kind = Noise
	p.AmplitudeMax = 1
	a, b := New(p), New(p)
	var on, off int
	for i := 0; i < 4096; i++ {
		a.Tick()
		b.Tick()
		sa, sb := a.Sample(), b.Sample()
		if sa != sb {
			t.Fatalf("tick %d: identical noise voices diverged (%d vs %d)", i, sa, sb)
		}
		if sa == 0 {
			off++
		} else {
			on++
		}
	}
	if on == 0 || off == 0 {
		t.Fatalf("noise produced on=%d off=%d, want both", on, off)
	}
}

func TestUnknownKindFallsBackToSine(t *testing.T) {
	p := sustainedParams()
	p.Kind = Kind(42)
	if got := New(p).Kind(); got != Sine {
		t.Fatalf("kind = %v, want sine", got)
	}
}

func TestBend(t *testing.T) {
	v := New(sustainedParams())
	for _, tc := range []struct {
		delta int
		want  float64
	}{
		{0, 262},
		{BendMax, 277},
		{BendMin, 247},
		{100000, 277},
		{-100000, 247},
	} {
		v.Bend(tc.delta)
		if math.Abs(v.Frequency()-tc.want) > 1e-9 {
			t.Errorf("Bend(%d) frequency = %v, want %v", tc.delta, v.Frequency(), tc.want)
		}
	}

	p := sustainedParams()
	p.Note = 127
	p.Frequency = tables.Frequency(127)
	top := New(p)
	top.Bend(BendMax)
	if top.Frequency() != tables.Frequency(127) {
		t.Errorf("bend above top note = %v, want %v", top.Frequency(), tables.Frequency(127))
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"saw": Saw, " Square ": Square, "4": Noise, "0": Sine} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("organ"); err == nil {
		t.Errorf("expected error for unknown waveform")
	}
}
