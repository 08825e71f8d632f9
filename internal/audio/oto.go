package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/cbegin/szsynth-go/internal/tables"
)

// OtoPlayer streams the mixer as 16-bit mono PCM through oto.
type OtoPlayer struct {
	player *oto.Player
}

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
)

func sharedOtoContext() (*oto.Context, error) {
	otoContextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   tables.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoContextErr = fmt.Errorf("oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
	})
	return otoContext, otoContextErr
}

// NewOtoPlayer prepares a paused player pulling from r.
func NewOtoPlayer(r Renderer, tap func([]uint16)) (*OtoPlayer, error) {
	ctx, err := sharedOtoContext()
	if err != nil {
		return nil, err
	}
	pl := ctx.NewPlayer(NewPCM16Reader(r, tap))
	// ~20ms of 16-bit mono
	pl.SetBufferSize(tables.SampleRate / 50 * 2)
	return &OtoPlayer{player: pl}, nil
}

func (p *OtoPlayer) Play() { p.player.Play() }

func (p *OtoPlayer) IsPlaying() bool { return p.player.IsPlaying() }

func (p *OtoPlayer) Stop() error {
	p.player.Pause()
	return p.player.Close()
}
