// Package sequencer schedules control events against the sample clock for
// offline rendering.
package sequencer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cbegin/szsynth-go/internal/control"
	"github.com/cbegin/szsynth-go/internal/tables"
)

var ErrSyntax = errors.New("sequencer: script syntax error")

// Step is a group of events applied at the start of Tick.
type Step struct {
	Tick   uint64
	Events []control.Event
}

// Script is a list of steps ordered by tick.
type Script struct {
	Steps []Step
}

// Len reports the tick of the last step plus one.
func (s *Script) Len() uint64 {
	if len(s.Steps) == 0 {
		return 0
	}
	return s.Steps[len(s.Steps)-1].Tick + 1
}

// MaxBurst reports the largest number of events scheduled on a single tick.
func (s *Script) MaxBurst() int {
	most, run := 0, 0
	for i, step := range s.Steps {
		if i > 0 && step.Tick != s.Steps[i-1].Tick {
			run = 0
		}
		run += len(step.Events)
		most = max(most, run)
	}
	return most
}

// Parse reads a script. Each non-blank line holds a time followed by one or
// more text commands:
//
//	0      [W3] [A10] [S0] [R2000]
//	4410   [N60]
//	250ms  [F60]
//
// Times are sample ticks, or milliseconds / seconds with an "ms" / "s"
// suffix. '#' starts a comment. Steps at the same tick keep file order.
func Parse(r io.Reader) (*Script, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		tick, err := ParseTime(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, lineNo, err)
		}
		events, err := control.ParseLine(strings.Join(fields[1:], " "))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, lineNo, err)
		}
		if len(events) == 0 {
			return nil, fmt.Errorf("%w: line %d: no commands", ErrSyntax, lineNo)
		}
		steps = append(steps, Step{Tick: tick, Events: events})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Tick < steps[j].Tick })
	return &Script{Steps: steps}, nil
}

// ParseTime converts "4410", "250ms" or "1.5s" to sample ticks.
func ParseTime(s string) (uint64, error) {
	scale := 0.0
	switch {
	case strings.HasSuffix(s, "ms"):
		s, scale = strings.TrimSuffix(s, "ms"), tables.SampleRate/1000.0
	case strings.HasSuffix(s, "s"):
		s, scale = strings.TrimSuffix(s, "s"), tables.SampleRate
	}
	if scale == 0 {
		return strconv.ParseUint(s, 10, 64)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative time %q", s)
	}
	return uint64(v*scale + 0.5), nil
}
