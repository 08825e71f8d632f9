package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/szsynth-go/internal/tables"
)

// Output is a running realtime backend.
type Output interface {
	Play()
	Stop() error
}

// EbitenPlayer streams a SampleSource through ebiten's audio context.
type EbitenPlayer struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	ebitenContextOnce sync.Once
	ebitenContext     *ebitaudio.Context
	ebitenSampleRate  int
)

func sharedEbitenContext(sampleRate int) (*ebitaudio.Context, error) {
	ebitenContextOnce.Do(func() {
		ebitenSampleRate = sampleRate
		ebitenContext = ebitaudio.NewContext(sampleRate)
	})
	if ebitenSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", ebitenSampleRate, sampleRate)
	}
	return ebitenContext, nil
}

// NewEbitenPlayer prepares a paused player at the engine sample rate.
func NewEbitenPlayer(source SampleSource) (*EbitenPlayer, error) {
	ctx, err := sharedEbitenContext(tables.SampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("ebiten player: %w", err)
	}
	pl.SetBufferSize(20 * time.Millisecond)
	return &EbitenPlayer{
		player: pl,
		reader: reader,
	}, nil
}

func (p *EbitenPlayer) Play() { p.player.Play() }

func (p *EbitenPlayer) IsPlaying() bool { return p.player.IsPlaying() }

// Position returns the current playback position (what the listener actually hears).
func (p *EbitenPlayer) Position() time.Duration { return p.player.Position() }

func (p *EbitenPlayer) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
