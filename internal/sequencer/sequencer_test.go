package sequencer

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/cbegin/szsynth-go/internal/control"
	"github.com/cbegin/szsynth-go/internal/mixer"
	"github.com/cbegin/szsynth-go/internal/tables"
)

// clockRenderer writes the absolute tick into each sample.
type clockRenderer struct {
	tick int
}

func (r *clockRenderer) Render(dst []uint16) {
	for i := range dst {
		dst[i] = uint16(r.tick)
		r.tick++
	}
}

type timedApplier struct {
	clock *clockRenderer
	seen  []int
	fail  bool
}

func (a *timedApplier) Apply(ev control.Event) error {
	a.seen = append(a.seen, a.clock.tick)
	if a.fail {
		return errors.New("refused")
	}
	return nil
}

func TestParseScript(t *testing.T) {
	src := `
# comment line
10     [N60] [N64]   # chord
0      [W3]
1ms    [F60]
0.5s   [V100]
`
	script, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []uint64{0, 10, 44, tables.SampleRate / 2}
	if len(script.Steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(script.Steps), len(want))
	}
	for i, tick := range want {
		if script.Steps[i].Tick != tick {
			t.Errorf("step %d tick = %d, want %d", i, script.Steps[i].Tick, tick)
		}
	}
	if n := len(script.Steps[1].Events); n != 2 {
		t.Fatalf("chord step has %d events, want 2", n)
	}
	if script.Len() != tables.SampleRate/2+1 {
		t.Fatalf("Len = %d", script.Len())
	}
}

func TestParseScriptErrors(t *testing.T) {
	for _, src := range []string{
		"abc [N60]",
		"10",
		"10 [N60",
		"-1ms [N60]",
	} {
		if _, err := Parse(strings.NewReader(src)); !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q) err = %v, want ErrSyntax", src, err)
		}
	}
}

func TestStepsLandOnExactTicks(t *testing.T) {
	script, err := Parse(strings.NewReader("0 [N1]\n3 [N2] [N3]\n7 [N4]\n100 [N5]"))
	if err != nil {
		t.Fatal(err)
	}
	clock := &clockRenderer{}
	applier := &timedApplier{clock: clock}
	seq := New(script, applier, clock)

	buf := make([]uint16, 5)
	seq.Render(buf)
	seq.Render(buf)
	want := []int{0, 3, 3, 7}
	if len(applier.seen) != len(want) {
		t.Fatalf("applied at %v, want %v", applier.seen, want)
	}
	for i := range want {
		if applier.seen[i] != want[i] {
			t.Fatalf("applied at %v, want %v", applier.seen, want)
		}
	}
	if buf[4] != 9 || seq.Tick() != 10 {
		t.Fatalf("clock out of step: last=%d tick=%d", buf[4], seq.Tick())
	}
	if seq.Done() {
		t.Fatalf("step at 100 not yet due")
	}
}

func TestRejectedEventsCountedAndLogged(t *testing.T) {
	script, _ := Parse(strings.NewReader("0 [N1] [N2]"))
	clock := &clockRenderer{}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	seq := NewWithOptions(script, &timedApplier{clock: clock, fail: true}, clock, Options{Logger: logger})
	seq.Render(make([]uint16, 1))
	if seq.Rejected() != 2 || !seq.Done() {
		t.Fatalf("rejected=%d done=%v", seq.Rejected(), seq.Done())
	}
	if n := strings.Count(logs.String(), "scripted event dropped"); n != 2 {
		t.Fatalf("logged %d dropped events, want 2:\n%s", n, logs.String())
	}
	if !strings.Contains(logs.String(), "[N2]") {
		t.Fatalf("log does not name the dropped event:\n%s", logs.String())
	}
}

func TestMaxBurst(t *testing.T) {
	script, err := Parse(strings.NewReader("0 [N1]\n5 [N1] [N2]\n5 [N3] [N4]\n9 [N1] [N2] [N3]"))
	if err != nil {
		t.Fatal(err)
	}
	if got := script.MaxBurst(); got != 4 {
		t.Fatalf("MaxBurst = %d, want 4", got)
	}
	if (&Script{}).MaxBurst() != 0 {
		t.Fatalf("empty script burst should be 0")
	}
}

func TestScriptDrivesMixer(t *testing.T) {
	script, err := Parse(strings.NewReader("0 [W3] [A1] [S0] [R1]\n10 [N60]"))
	if err != nil {
		t.Fatal(err)
	}
	m := mixer.New(mixer.DefaultParams())
	surface := control.NewSurface(m, control.DefaultSettings(), nil)
	seq := New(script, surface, m)

	out := make([]uint16, 20)
	seq.Render(out)
	if out[9] != 0 {
		t.Fatalf("output before the note = %d, want silence", out[9])
	}
	peak := uint16(tables.OutputMax * control.DefaultSettings().Volume)
	if out[10] != peak {
		t.Fatalf("square note should peak on its first tick: got %d, want %d", out[10], peak)
	}
	if out[11] != 0 || m.Pool().Len() != 0 {
		t.Fatalf("one-shot square should have released, pool=%d", m.Pool().Len())
	}
}
