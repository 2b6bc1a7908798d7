// SPDX-License-Identifier: EPL-2.0

// Package intpcm adapts the go-audio integer PCM decoders to audio.Source.
package intpcm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

var ErrUnsupportedBitDepth = errors.New("unsupported PCM bit depth")

// Reader is the part of the go-audio wav and aiff decoders used here.
type Reader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source converts integer PCM from a Reader to float32.
type Source struct {
	dec        Reader
	sampleRate int
	channels   int
	scale      float32
	offset     int
	intBuf     *goaudio.IntBuffer
}

// NewSource wraps dec. unsigned8 selects the WAV convention where 8-bit
// samples are stored with a 128 bias.
func NewSource(dec Reader, bitDepth int, unsigned8 bool) (*Source, error) {
	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrUnsupportedBitDepth)
	}

	s := &Source{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
	}

	switch bitDepth {
	case 8:
		s.scale = 128
		if unsigned8 {
			s.offset = 128
		}
	case 16:
		s.scale = 32768
	case 24:
		s.scale = 8388608
	case 32:
		s.scale = 2147483648
	default:
		return nil, fmt.Errorf("%w: %d bits", ErrUnsupportedBitDepth, bitDepth)
	}

	return s, nil
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) Close() error    { return nil }

func (s *Source) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read pcm: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.intBuf.Data[:n] {
		dst[i] = float32(v-s.offset) / s.scale
	}

	// go-audio signals the end with a short read and a nil error.
	if n < len(dst) || errors.Is(err, io.EOF) {
		return n, io.EOF
	}

	return n, nil
}

// ReadSeeker returns r when it can seek, otherwise buffers it in memory.
func ReadSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffer input: %w", err)
	}

	return bytes.NewReader(data), nil
}
