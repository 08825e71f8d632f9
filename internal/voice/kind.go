package voice

import (
	"fmt"
	"strings"

	"github.com/cbegin/szsynth-go/internal/tables"
)

// Kind selects how a voice produces its samples.
type Kind int

const (
	Sine Kind = iota
	Triangle
	Saw
	Square
	Noise
)

var kindNames = [...]string{"sine", "triangle", "saw", "square", "noise"}

func (k Kind) String() string {
	if k < Sine || k > Noise {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= Sine && k <= Noise
}

// ParseKind accepts a kind name ("saw") or its numeric index ("2").
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if s == name || s == fmt.Sprint(i) {
			return Kind(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q (expected sine|triangle|saw|square|noise)", s)
}

// waveform maps a tabled kind onto its lookup table.
func (k Kind) waveform() tables.Waveform {
	switch k {
	case Triangle:
		return tables.Triangle
	case Saw:
		return tables.Saw
	default:
		return tables.Sine
	}
}
