// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds sources and sample builders shared by tests.
package audiotest

import (
	"errors"
	"io"
	"math"
)

// MockSource generates frames from a waveform function. It satisfies
// audio.Source structurally so this package stays free of import cycles.
type MockSource struct {
	sampleRate int
	channels   int
	frames     int
	pos        int
	waveform   func(frame, channel int) float32

	// Fail, when set, is returned by ReadSamples once pos reaches FailAt.
	Fail   error
	FailAt int
	Closed bool
}

func NewMockSource(sampleRate, channels, frames int, waveform func(frame, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		waveform:   waveform,
	}
}

func NewSilentSource(sampleRate, channels, frames int) *MockSource {
	return NewConstantSource(sampleRate, channels, frames, 0)
}

func NewSineSource(sampleRate, channels, frames int, freq float64) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		return float32(math.Sin(2 * math.Pi * freq * float64(frame) / float64(sampleRate)))
	})
}

func NewConstantSource(sampleRate, channels, frames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) float32 {
		return value
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }

func (m *MockSource) Close() error {
	m.Closed = true
	return nil
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.Fail != nil && m.pos >= m.FailAt {
		return 0, m.Fail
	}
	if m.pos >= m.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/m.channels, m.frames-m.pos)
	for f := range n {
		for c := range m.channels {
			dst[f*m.channels+c] = m.waveform(m.pos+f, c)
		}
	}
	m.pos += n

	if m.pos >= m.frames {
		return n * m.channels, io.EOF
	}
	return n * m.channels, nil
}

// ErrMock is a generic failure for error path tests.
var ErrMock = errors.New("mock failure")

// Ramp returns frames*channels interleaved samples where every channel of
// frame i holds i*step.
func Ramp(frames, channels int, step float32) []float32 {
	out := make([]float32, frames*channels)
	for i := range frames {
		for c := range channels {
			out[i*channels+c] = float32(i) * step
		}
	}
	return out
}

// Sine returns a mono sine of the given amplitude.
func Sine(frames, sampleRate int, freq float64, amp float32) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

// Const returns n copies of v.
func Const(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
