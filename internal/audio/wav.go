package audio

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cbegin/szsynth-go/internal/tables"
)

// WAVSink writes mixer output as a 16-bit mono WAV file.
type WAVSink struct {
	enc *wav.Encoder
	buf *goaudio.IntBuffer
}

// NewWAVSink starts a WAV stream on w. The header is finalised by Close.
func NewWAVSink(w io.WriteSeeker) *WAVSink {
	return &WAVSink{
		enc: wav.NewEncoder(w, tables.SampleRate, 16, 1, 1),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: 1,
				SampleRate:  tables.SampleRate,
			},
			SourceBitDepth: 16,
		},
	}
}

// Write appends samples.
func (s *WAVSink) Write(samples []uint16) error {
	if cap(s.buf.Data) < len(samples) {
		s.buf.Data = make([]int, len(samples))
	}
	s.buf.Data = s.buf.Data[:len(samples)]
	for i, v := range samples {
		s.buf.Data[i] = int(ToInt16(v))
	}
	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	return nil
}

func (s *WAVSink) Close() error {
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("wav close: %w", err)
	}
	return nil
}
