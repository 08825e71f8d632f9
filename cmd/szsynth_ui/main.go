package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/cbegin/szsynth-go"
	"github.com/cbegin/szsynth-go/internal/voice"
)

const (
	windowW    = 980
	windowH    = 560
	minWindowW = 720
	minWindowH = 480

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	scopeLen   = 2048
	ringBufLen = 16384
)

var (
	bgColor         = color.RGBA{192, 192, 192, 255}
	panelColor      = color.RGBA{192, 192, 192, 255}
	borderColor     = color.RGBA{128, 128, 128, 255}
	bevelLight      = color.RGBA{255, 255, 255, 255}
	bevelDarker     = color.RGBA{64, 64, 64, 255}
	sunkenBgColor   = color.RGBA{24, 24, 32, 255}
	sliderFillColor = color.RGBA{0, 0, 128, 255}
	whiteKeyColor   = color.RGBA{240, 240, 240, 255}
	blackKeyColor   = color.RGBA{20, 20, 20, 255}
	keyDownColor    = color.RGBA{80, 200, 255, 255}
)

// keyNotes maps the computer keyboard onto one and a half octaves.
var keyNotes = map[ebiten.Key]int{
	ebiten.KeyZ: 0, ebiten.KeyS: 1, ebiten.KeyX: 2, ebiten.KeyD: 3, ebiten.KeyC: 4,
	ebiten.KeyV: 5, ebiten.KeyG: 6, ebiten.KeyB: 7, ebiten.KeyH: 8, ebiten.KeyN: 9,
	ebiten.KeyJ: 10, ebiten.KeyM: 11, ebiten.KeyQ: 12, ebiten.KeyDigit2: 13, ebiten.KeyW: 14,
	ebiten.KeyDigit3: 15, ebiten.KeyE: 16, ebiten.KeyR: 17, ebiten.KeyDigit5: 18, ebiten.KeyT: 19,
	ebiten.KeyDigit6: 20, ebiten.KeyY: 21, ebiten.KeyDigit7: 22, ebiten.KeyU: 23, ebiten.KeyI: 24,
}

const pianoKeys = 25

// scope keeps the most recent mono samples written by the audio thread.
type scope struct {
	mu       sync.Mutex
	ring     []float32
	writePos int
}

func newScope() *scope {
	return &scope{ring: make([]float32, ringBufLen)}
}

// Tap is called from the audio thread. Keep it minimal: just copy into ring.
func (s *scope) Tap(samples []uint16) {
	s.mu.Lock()
	for _, v := range samples {
		s.ring[s.writePos] = (float32(v) - 32768) / 32768
		s.writePos = (s.writePos + 1) % ringBufLen
	}
	s.mu.Unlock()
}

// Snapshot copies the last n samples.
func (s *scope) Snapshot(n int) []float32 {
	out := make([]float32, n)
	s.mu.Lock()
	start := (s.writePos - n + ringBufLen) % ringBufLen
	for i := range out {
		out[i] = s.ring[(start+i)%ringBufLen]
	}
	s.mu.Unlock()
	return out
}

type game struct {
	synth *szsynth.Synth
	scope *scope

	octave   int
	held     map[int]bool // absolute notes currently down
	mouseKey int          // note held by the mouse, -1 when none
	wavePeak float64

	dragging string // "", "volume", "sustain"

	status    string
	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame() (*game, error) {
	sc := newScope()
	synth := szsynth.New(szsynth.WithBackend(szsynth.BackendEbiten), szsynth.WithSampleTap(sc.Tap))
	if err := synth.Start(); err != nil {
		return nil, err
	}
	synth.Exec("[A400] [D2000] [S700] [R6000]")
	return &game{
		synth:     synth,
		scope:     sc,
		octave:    4,
		held:      make(map[int]bool),
		mouseKey:  -1,
		status:    "Ready",
		textCache: make(map[string]*ebiten.Image, 256),
		viewW:     windowW,
		viewH:     windowH,
	}, nil
}

func (g *game) Close() { _ = g.synth.Stop() }

func (g *game) Update() error {
	g.handleKeys()
	g.handleMouse()
	return nil
}

func (g *game) baseNote() int { return 12 * (g.octave + 1) }

func (g *game) press(note int) {
	if g.held[note] {
		return
	}
	g.held[note] = true
	if err := g.synth.NoteOn(note); err != nil {
		g.status = err.Error()
	}
}

func (g *game) lift(note int) {
	if !g.held[note] {
		return
	}
	delete(g.held, note)
	g.synth.NoteOff(note)
}

func (g *game) handleKeys() {
	for key, offset := range keyNotes {
		note := g.baseNote() + offset
		if inpututil.IsKeyJustPressed(key) {
			g.press(note)
		}
		if inpututil.IsKeyJustReleased(key) {
			g.lift(note)
		}
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && g.octave < 8:
		g.releaseAll()
		g.octave++
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && g.octave > 0:
		g.releaseAll()
		g.octave--
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		g.cycleWaveform()
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.releaseAll()
	}
}

func (g *game) releaseAll() {
	for note := range g.held {
		g.lift(note)
	}
	g.mouseKey = -1
}

func (g *game) cycleWaveform() {
	next := (g.synth.Settings().Waveform + 1) % (voice.Noise + 1)
	g.synth.Exec(fmt.Sprintf("[W%d]", next))
	g.status = "Waveform " + next.String()
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.wave):
			g.cycleWaveform()
		case pointInRect(mx, my, l.volume):
			g.dragging = "volume"
		case pointInRect(mx, my, l.sustain):
			g.dragging = "sustain"
		case pointInRect(mx, my, l.piano):
			if note, ok := g.pianoNoteAt(mx, my, l.piano); ok {
				g.mouseKey = note
				g.press(note)
			}
		}
	}
	if g.dragging == "sustain" && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.synth.Exec(fmt.Sprintf("[S%d]", sliderPermille(mx, l.sustain)))
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		// volume retriggers the probe tone, so apply it once on release
		if g.dragging == "volume" {
			g.synth.Exec(fmt.Sprintf("[V%d]", sliderPermille(mx, l.volume)))
		}
		g.dragging = ""
		if g.mouseKey >= 0 {
			g.lift(g.mouseKey)
			g.mouseKey = -1
		}
	}
}

type uiLayout struct {
	scope   image.Rectangle
	wave    image.Rectangle
	volume  image.Rectangle
	sustain image.Rectangle
	piano   image.Rectangle
	status  image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	const pad = 10
	w, h := g.viewW, g.viewH
	controlsY := pad + h/2
	pianoY := controlsY + 48 + pad
	statusH := lineH + 12
	return uiLayout{
		scope:   image.Rect(pad, pad, w-pad, controlsY-pad),
		wave:    image.Rect(pad, controlsY, pad+220, controlsY+48),
		volume:  image.Rect(pad+230, controlsY, pad+230+(w-250)/2, controlsY+48),
		sustain: image.Rect(pad+240+(w-250)/2, controlsY, w-pad, controlsY+48),
		piano:   image.Rect(pad, pianoY, w-pad, h-pad-statusH-pad),
		status:  image.Rect(pad, h-pad-statusH, w-pad, h-pad),
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()
	st := g.synth.Stats()
	settings := g.synth.Settings()

	g.drawScope(screen, l.scope)
	g.drawButton(screen, l.wave, "Wave: "+settings.Waveform.String())
	g.drawSlider(screen, l.volume, "Vol", settings.Volume)
	g.drawSlider(screen, l.sustain, "Sus", float64(settings.SustainPermille)/1000)
	g.drawPiano(screen, l.piano)
	g.drawSunkenPanel(screen, l.status)
	msg := fmt.Sprintf("Oct %d  Voices %d  Clipped %d  Dropped %d  %s", g.octave, st.ActiveVoices, st.ClippedTicks, st.DroppedSpawns, g.status)
	g.drawText(screen, shortenEnd(msg, max(8, (l.status.Dx()-16)/charW)), l.status.Min.X+8, l.status.Min.Y+6)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	outsideW = max(outsideW, minWindowW)
	outsideH = max(outsideH, minWindowH)
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), color.RGBA{0, 0, 0, 255})
	drawSunkenBorder(screen, rect)
	samples := g.scope.Snapshot(scopeLen)
	if rect.Dx() < 8 || rect.Dy() < 8 {
		return
	}
	midY := float64(rect.Min.Y + rect.Dy()/2)
	ebitenutil.DrawRect(screen, float64(rect.Min.X+2), midY, float64(rect.Dx()-4), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain: track peak with fast attack, slow release.
	peak := float32(0)
	for _, s := range samples {
		peak = max(peak, s, -s)
	}
	target := max(float64(peak), 0.01)
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	gain := (float64(rect.Dy())/2 - 4) / max(g.wavePeak, 0.01)

	trigger := findZeroCrossing(samples, len(samples)/4)
	visible := max(len(samples)-trigger, 2)
	width := rect.Dx() - 4
	waveColor := color.RGBA{80, 200, 255, 220}
	x0 := float64(rect.Min.X + 2)
	prevY := midY - float64(samples[trigger])*gain
	for px := 1; px < width; px++ {
		si := min(trigger+px*visible/width, len(samples)-1)
		y := midY - float64(samples[si])*gain
		ebitenutil.DrawLine(screen, x0+float64(px-1), prevY, x0+float64(px), y, waveColor)
		prevY = y
	}
}

// findZeroCrossing finds a rising zero-crossing in samples to stabilize the waveform display.
func findZeroCrossing(samples []float32, searchLen int) int {
	if searchLen > len(samples)-2 {
		searchLen = len(samples) - 2
	}
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

func isBlack(offset int) bool {
	switch offset % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

func whiteKeyCount() int {
	n := 0
	for i := 0; i < pianoKeys; i++ {
		if !isBlack(i) {
			n++
		}
	}
	return n
}

// keyRect returns the on-screen rectangle of the key at offset.
func keyRect(offset int, rect image.Rectangle) image.Rectangle {
	whiteW := rect.Dx() / whiteKeyCount()
	white := 0
	for i := 0; i < offset; i++ {
		if !isBlack(i) {
			white++
		}
	}
	if !isBlack(offset) {
		x := rect.Min.X + white*whiteW
		return image.Rect(x, rect.Min.Y, x+whiteW, rect.Max.Y)
	}
	x := rect.Min.X + white*whiteW - whiteW/3
	return image.Rect(x, rect.Min.Y, x+whiteW*2/3, rect.Min.Y+rect.Dy()*3/5)
}

func (g *game) pianoNoteAt(mx, my int, rect image.Rectangle) (int, bool) {
	// black keys sit on top
	for i := 0; i < pianoKeys; i++ {
		if isBlack(i) && pointInRect(mx, my, keyRect(i, rect)) {
			return g.baseNote() + i, true
		}
	}
	for i := 0; i < pianoKeys; i++ {
		if !isBlack(i) && pointInRect(mx, my, keyRect(i, rect)) {
			return g.baseNote() + i, true
		}
	}
	return 0, false
}

func (g *game) drawPiano(screen *ebiten.Image, rect image.Rectangle) {
	for _, black := range []bool{false, true} {
		for i := 0; i < pianoKeys; i++ {
			if isBlack(i) != black {
				continue
			}
			r := keyRect(i, rect)
			fill := whiteKeyColor
			if black {
				fill = blackKeyColor
			}
			if g.held[g.baseNote()+i] {
				fill = keyDownColor
			}
			ebitenutil.DrawRect(screen, float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), fill)
			drawBorder(screen, r)
		}
	}
}

func sliderPermille(mx int, rect image.Rectangle) int {
	trackX := rect.Min.X + 90
	trackW := rect.Dx() - 106
	if trackW <= 0 {
		return 0
	}
	return int(1000 * clamp(float64(mx-trackX)/float64(trackW), 0, 1))
}

func (g *game) drawSlider(screen *ebiten.Image, rect image.Rectangle, name string, value float64) {
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("%s %d%%", name, int(value*100+0.5)), rect.Min.X+8, rect.Min.Y+10)

	trackX := rect.Min.X + 90
	trackW := rect.Dx() - 106
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	fillW := int(float64(trackW) * clamp(value, 0, 1))
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFillColor)
	}
	knobX := min(max(trackX+fillW-5, trackX-5), trackX+trackW-5)
	knob := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knob.Min.X), float64(knob.Min.Y), float64(knob.Dx()), float64(knob.Dy()), panelColor)
	drawBorder(screen, knob)
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	g.drawPanel(screen, rect)
	labelW := len([]rune(label)) * charW
	g.drawText(screen, label, rect.Min.X+(rect.Dx()-labelW)/2, rect.Min.Y+(rect.Dy()-lineH)/2)
}

// drawBorder draws a raised bevel.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
}

// drawSunkenBorder draws an inset bevel.
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x+2), float64(y+2))
	op.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, op)
	op = &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

func main() {
	g, err := newGame()
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("szsynth")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
