// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/audsampler/utils"
)

// maxEmptyReads bounds how many (0, nil) reads ReadAll tolerates before
// giving up on a source that makes no progress.
const maxEmptyReads = 64

// Buffer is a fully decoded, immutable block of interleaved PCM.
//
// Nothing in this module writes to Data after a Buffer is returned from its
// producer, so one Buffer may be shared by any number of readers.
type Buffer struct {
	Channels   int
	SampleRate int
	Data       []float32
}

// NewBuffer wraps data. len(data) must be a multiple of channels.
func NewBuffer(channels, sampleRate int, data []float32) (*Buffer, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedChannels, channels)
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if len(data)%channels != 0 {
		return nil, ErrInvalidDstSize
	}

	return &Buffer{Channels: channels, SampleRate: sampleRate, Data: data}, nil
}

// Frames returns the number of frames (samples per channel).
func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration returns the playback length at the buffer's sample rate.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float32 {
	if b == nil {
		return 0
	}
	return utils.Peak(b.Data)
}

// Source returns a Source reading the buffer from the start.
func (b *Buffer) Source() Source {
	return &bufferSource{buf: b}
}

type bufferSource struct {
	buf *Buffer
	pos int
}

func (s *bufferSource) SampleRate() int { return s.buf.SampleRate }
func (s *bufferSource) Channels() int   { return s.buf.Channels }
func (s *bufferSource) BufSize() int    { return 4096 }
func (s *bufferSource) Close() error    { return nil }

func (s *bufferSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.buf.Data) {
		return 0, io.EOF
	}

	n := copy(dst, s.buf.Data[s.pos:])
	s.pos += n
	if s.pos >= len(s.buf.Data) {
		return n, io.EOF
	}

	return n, nil
}

// ReadAll drains src into a Buffer. Partial trailing frames are dropped.
func ReadAll(src Source) (*Buffer, error) {
	channels := src.Channels()
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedChannels, channels)
	}

	chunk := max(src.BufSize(), 1024)
	chunk -= chunk % channels
	buf := make([]float32, chunk)

	var data []float32
	empty := 0

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			empty = 0
		} else if err == nil {
			empty++
			if empty > maxEmptyReads {
				return nil, io.ErrNoProgress
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
	}

	data = data[:len(data)-len(data)%channels]

	return &Buffer{Channels: channels, SampleRate: src.SampleRate(), Data: data}, nil
}
