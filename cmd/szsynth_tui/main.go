// Command szsynth_tui plays the voice engine from the computer keyboard.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/szsynth-go"
)

func main() {
	var (
		backendName = flag.String("backend", "ebiten", "audio backend: ebiten|oto")
		hold        = flag.Duration("hold", 300*time.Millisecond, "how long a key press holds its note")
		logPath     = flag.String("log", "", "write debug log to this file")
	)
	flag.Parse()

	// the terminal belongs to the UI; logs go to a file or nowhere
	var w io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))

	backend, err := szsynth.ParseBackend(*backendName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	synth := szsynth.New(szsynth.WithBackend(backend), szsynth.WithLogger(logger))
	if err := synth.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer synth.Stop()

	if _, err := tea.NewProgram(NewModel(synth, *hold)).Run(); err != nil {
		logger.Error("ui failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
	}
}
