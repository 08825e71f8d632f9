// Package audio moves mixer output to speakers and files.
package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

// Renderer is the render side of the voice mixer: it fills dst with
// consecutive unsigned 16-bit samples.
type Renderer interface {
	Render(dst []uint16)
}

// SampleSource produces interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// ToFloat maps an unsigned mixer sample onto [-1, 1) with 32768 as silence.
func ToFloat(s uint16) float32 {
	return (float32(s) - 32768) / 32768
}

// ToInt16 recentres an unsigned mixer sample as signed PCM.
func ToInt16(s uint16) int16 {
	return int16(int32(s) - 32768)
}

// MixSource adapts a Renderer to the stereo float stream used by the ebiten
// backend. The mono mix is written to both channels.
type MixSource struct {
	renderer Renderer
	tap      func([]uint16)
	buf      []uint16
}

// NewMixSource wraps r. tap, when non-nil, sees every rendered block on the
// audio goroutine and must not retain it.
func NewMixSource(r Renderer, tap func([]uint16)) *MixSource {
	return &MixSource{renderer: r, tap: tap}
}

func (s *MixSource) Process(dst []float32) {
	frames := len(dst) / 2
	if cap(s.buf) < frames {
		s.buf = make([]uint16, frames)
	}
	s.buf = s.buf[:frames]
	s.renderer.Render(s.buf)
	for i, v := range s.buf {
		f := ToFloat(v)
		dst[2*i] = f
		dst[2*i+1] = f
	}
	if s.tap != nil {
		s.tap(s.buf)
	}
}

// StreamReader encodes a SampleSource as little-endian float32 stereo bytes.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, f := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(f))
	}
	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

// PCM16Reader encodes a Renderer as signed 16-bit little-endian mono bytes.
type PCM16Reader struct {
	mu       sync.Mutex
	renderer Renderer
	tap      func([]uint16)
	buf      []uint16
}

func NewPCM16Reader(r Renderer, tap func([]uint16)) *PCM16Reader {
	return &PCM16Reader{renderer: r, tap: tap}
}

func (r *PCM16Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := len(p) / 2
	if samples == 0 {
		return 0, nil
	}
	if cap(r.buf) < samples {
		r.buf = make([]uint16, samples)
	}
	r.buf = r.buf[:samples]
	r.renderer.Render(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(ToInt16(s)))
	}
	if r.tap != nil {
		r.tap(r.buf)
	}
	return samples * 2, nil
}
