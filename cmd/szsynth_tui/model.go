package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/szsynth-go"
	"github.com/cbegin/szsynth-go/internal/voice"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	heldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	whiteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("15"))
	blackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("0"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Model is the terminal keyboard. Terminals report key presses only, so each
// note is released after a fixed hold time.
type Model struct {
	Synth *szsynth.Synth
	Hold  time.Duration

	Octave int
	Held   map[int]int // note -> generation of its pending release
	gen    int

	Command    []rune
	Commanding bool

	Status    string
	StatusErr bool
}

func NewModel(synth *szsynth.Synth, hold time.Duration) Model {
	return Model{
		Synth:  synth,
		Hold:   hold,
		Octave: 4,
		Held:   make(map[int]int),
	}
}

type tickMsg struct{}

type releaseMsg struct {
	note int
	gen  int
}

func tickCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tickCmd()
	case releaseMsg:
		if m.Held[msg.note] == msg.gen {
			delete(m.Held, msg.note)
			if err := m.Synth.NoteOff(msg.note); err != nil {
				m.Status, m.StatusErr = fmt.Sprintf("release %d: %v", msg.note, err), true
			}
		}
		return m, nil
	case tea.KeyMsg:
		if m.Commanding {
			return m.handleCommandKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case ":":
		m.Commanding = true
		m.Command = m.Command[:0]
		return m, nil
	case "up":
		m.Octave = min(m.Octave+1, 8)
		return m, nil
	case "down":
		m.Octave = max(m.Octave-1, 0)
		return m, nil
	case "tab":
		next := (m.Synth.Settings().Waveform + 1) % (voice.Noise + 1)
		return m.exec(fmt.Sprintf("[W%d]", next)), nil
	case "+", "=":
		return m.exec(fmt.Sprintf("[V%d]", min(m.volumePermille()+50, 1000))), nil
	case "-":
		return m.exec(fmt.Sprintf("[V%d]", max(m.volumePermille()-50, 0))), nil
	case "]":
		return m.exec(fmt.Sprintf("[S%d]", min(m.Synth.Settings().SustainPermille+100, 1000))), nil
	case "[":
		return m.exec(fmt.Sprintf("[S%d]", max(m.Synth.Settings().SustainPermille-100, 0))), nil
	}
	if offset := keyToNote(key); offset >= 0 {
		return m.play(12*(m.Octave+1) + offset)
	}
	return m, nil
}

func (m Model) handleCommandKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.Commanding = false
		return m.exec(string(m.Command)), nil
	case tea.KeyEsc:
		m.Commanding = false
	case tea.KeyBackspace:
		if len(m.Command) > 0 {
			m.Command = m.Command[:len(m.Command)-1]
		}
	case tea.KeySpace:
		m.Command = append(m.Command, ' ')
	case tea.KeyRunes:
		m.Command = append(m.Command, msg.Runes...)
	}
	return m, nil
}

func (m Model) play(note int) (tea.Model, tea.Cmd) {
	if err := m.Synth.NoteOn(note); err != nil {
		m.Status, m.StatusErr = err.Error(), true
		return m, nil
	}
	m.gen++
	gen := m.gen
	m.Held[note] = gen
	m.Status, m.StatusErr = "", false
	return m, tea.Tick(m.Hold, func(time.Time) tea.Msg { return releaseMsg{note: note, gen: gen} })
}

func (m Model) exec(line string) Model {
	if err := m.Synth.Exec(line); err != nil {
		m.Status, m.StatusErr = err.Error(), true
		return m
	}
	m.Status, m.StatusErr = line, false
	return m
}

func (m Model) volumePermille() int {
	return int(m.Synth.Settings().Volume*1000 + 0.5)
}

// keyToNote converts a keyboard key to a semitone offset, or -1.
func keyToNote(key string) int {
	// Lower row: Z S X D C V G B H N J M
	// Upper row: Q 2 W 3 E R 5 T 6 Y 7 U I
	notes := map[string]int{
		"z": 0, "s": 1, "x": 2, "d": 3, "c": 4, "v": 5,
		"g": 6, "b": 7, "h": 8, "n": 9, "j": 10, "m": 11,
		"q": 12, "2": 13, "w": 14, "3": 15, "e": 16, "r": 17,
		"5": 18, "t": 19, "6": 20, "y": 21, "7": 22, "u": 23,
		"i": 24,
	}
	if n, ok := notes[key]; ok {
		return n
	}
	return -1
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SZSYNTH"))
	st := m.Synth.Stats()
	b.WriteString(labelStyle.Render(fmt.Sprintf(" │ voices %d │ clipped %d │ dropped %d │ oct %d", st.ActiveVoices, st.ClippedTicks, st.DroppedSpawns, m.Octave)))
	b.WriteString("\n\n")
	b.WriteString(m.settingsView())
	b.WriteString("\n\n")
	b.WriteString(m.keyboardView())
	b.WriteString("\n\n")
	switch {
	case m.Commanding:
		b.WriteString(promptStyle.Render(":" + string(m.Command) + "█"))
	case m.StatusErr:
		b.WriteString(errorStyle.Render(m.Status))
	default:
		b.WriteString(labelStyle.Render(m.Status))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("zsxdc…/q2w3e… play  ↑↓ octave  tab wave  +/- volume  [/] sustain  : command  esc quit"))
	return b.String()
}

func (m Model) settingsView() string {
	s := m.Synth.Settings()
	field := func(name string, value any) string {
		return labelStyle.Render(name+" ") + valueStyle.Render(fmt.Sprint(value))
	}
	return strings.Join([]string{
		field("wave", s.Waveform),
		field("vol", fmt.Sprintf("%d‰", m.volumePermille())),
		field("A", s.Attack),
		field("D", s.Decay),
		field("S", fmt.Sprintf("%d‰", s.SustainPermille)),
		field("R", s.Release),
		field("duty", s.DutyCycle),
		field("glide", s.Portamento),
	}, "  ")
}

func (m Model) keyboardView() string {
	base := 12 * (m.Octave + 1)
	var keys []string
	for i := 0; i < 25; i++ {
		style := whiteStyle
		switch i % 12 {
		case 1, 3, 6, 8, 10:
			style = blackStyle
		}
		if _, held := m.Held[base+i]; held {
			style = heldStyle
		}
		keys = append(keys, style.Render("  "))
	}
	return strings.Join(keys, "")
}
