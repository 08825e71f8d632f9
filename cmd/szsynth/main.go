// Command szsynth plays the voice engine live from text commands on stdin
// and an optional MIDI input, or renders a timed script to a WAV file.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cbegin/szsynth-go"
)

// logger is replaced by initLogger once flags are parsed.
var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	var (
		backendName = flag.String("backend", "ebiten", "audio backend: ebiten|oto")
		capacity    = flag.Int("voices", 64, "maximum simultaneous voices")
		midiPort    = flag.String("midi", "", "MIDI input port name (substring match)")
		listMIDI    = flag.Bool("list-midi", false, "list MIDI input ports and exit")
		scriptPath  = flag.String("script", "", "timed command script to render offline")
		outPath     = flag.String("out", "out.wav", "WAV output path for -script")
		seconds     = flag.Float64("seconds", 0, "render length for -script (0 = script length + 1s)")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()
	initLogger(*debug)

	var err error
	switch {
	case *listMIDI:
		err = printMIDIPorts(os.Stdout)
	case *scriptPath != "":
		err = renderScript(*scriptPath, *outPath, *seconds, *capacity)
	default:
		err = runLive(*backendName, *capacity, *midiPort)
	}
	if err != nil {
		logger.Error("szsynth failed", "err", err)
		os.Exit(1)
	}
}

func renderScript(scriptPath, outPath string, seconds float64, capacity int) error {
	in, err := os.Open(scriptPath)
	if err != nil {
		return err
	}
	defer in.Close()
	script, err := szsynth.ParseScript(in)
	if err != nil {
		return fmt.Errorf("%s: %w", scriptPath, err)
	}
	if seconds <= 0 {
		seconds = float64(script.Len())/szsynth.SampleRate + 1
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := szsynth.RenderWAV(out, script, seconds, szsynth.WithCapacity(capacity), szsynth.WithLogger(logger)); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Info("rendered", "script", scriptPath, "out", outPath, "seconds", seconds)
	return nil
}

func runLive(backendName string, capacity int, midiPort string) error {
	backend, err := szsynth.ParseBackend(backendName)
	if err != nil {
		return err
	}
	synth := szsynth.New(
		szsynth.WithBackend(backend),
		szsynth.WithCapacity(capacity),
		szsynth.WithLogger(logger),
	)
	if err := synth.Start(); err != nil {
		return err
	}
	defer synth.Stop()

	if midiPort != "" {
		stop, err := listenMIDI(midiPort, synth)
		if err != nil {
			return err
		}
		defer stop()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- readCommands(os.Stdin, synth) }()

	select {
	case s := <-sig:
		logger.Info("shutting down", "signal", s.String())
		return nil
	case err := <-done:
		return err
	}
}

// readCommands feeds each stdin line to the synth until EOF or "quit".
func readCommands(r io.Reader, synth *szsynth.Synth) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "stats":
			st := synth.Stats()
			fmt.Printf("voices=%d ticks=%d clipped=%d dropped=%d\n", st.ActiveVoices, st.Ticks, st.ClippedTicks, st.DroppedSpawns)
			continue
		}
		if err := synth.Exec(line); err != nil {
			logger.Warn("bad command", "line", line, "err", err)
		}
	}
	return sc.Err()
}

func openMIDIDriver() (*rtmididrv.Driver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midi driver: %w", err)
	}
	return drv, nil
}

func printMIDIPorts(w io.Writer) error {
	drv, err := openMIDIDriver()
	if err != nil {
		return err
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("list midi inputs: %w", err)
	}
	for _, in := range ins {
		fmt.Fprintf(w, "%d\t%s\n", in.Number(), in.String())
	}
	return nil
}

// listenMIDI connects the first input whose name contains port. The returned
// function stops listening and closes the driver.
func listenMIDI(port string, synth *szsynth.Synth) (func(), error) {
	drv, err := openMIDIDriver()
	if err != nil {
		return nil, err
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(port)) {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, errors.New("midi input " + port + " not found")
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open midi port %q: %w", found.String(), err)
	}
	stop, err := midi.ListenTo(found, func(msg midi.Message, timestampms int32) {
		synth.HandleMIDI(msg)
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("midi listener error", "device", found.String(), "err", listenErr)
	}))
	if err != nil {
		found.Close()
		drv.Close()
		return nil, fmt.Errorf("listen midi port %q: %w", found.String(), err)
	}
	logger.Info("midi input connected", "device", found.String())
	return func() {
		stop()
		found.Close()
		drv.Close()
	}, nil
}
