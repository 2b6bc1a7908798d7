// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audsampler/utils"
)

// antiAliasAlpha is the coefficient of the one-pole low-pass applied to
// source frames when downsampling.
const antiAliasAlpha = 0.5

// Resampler streams src at a new sample rate using cubic interpolation.
// Channel count is preserved. A one-pole low-pass runs on the input when
// the target rate is lower than the source rate.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames consumed per output frame
	channels int

	// win[0] = t-1, win[1] = t0, win[2] = t+1, win[3] = t+2
	win   [4][]float32
	valid [4]bool

	pos    float64 // fractional position between win[1] and win[2]
	frame  []float32
	primed bool
	eof    bool

	lowpass bool
	state   []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		ratio:    float64(src.SampleRate()) / float64(dstRate),
		channels: channels,
		frame:    make([]float32, channels),
		state:    make([]float32, channels),
	}
	r.lowpass = r.ratio > 1.0

	for i := range r.win {
		r.win[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("close resampler source: %w", err)
	}
	return nil
}

// readFrame pulls one source frame into r.frame.
func (r *Resampler) readFrame() (bool, error) {
	if r.eof {
		return false, io.EOF
	}

	n, err := r.src.ReadSamples(r.frame)
	if errors.Is(err, io.EOF) {
		r.eof = true
		err = nil
	}
	if err != nil {
		return false, fmt.Errorf("resampler read: %w", err)
	}
	if n < r.channels {
		if r.eof {
			return false, io.EOF
		}
		return false, nil
	}

	if r.lowpass {
		for c := range r.channels {
			r.frame[c] = antiAliasAlpha*r.frame[c] + (1-antiAliasAlpha)*r.state[c]
			r.state[c] = r.frame[c]
		}
	}

	return true, nil
}

// prime fills the window, seeding the filter with the first frame and
// duplicating the last available frame when the source is short.
func (r *Resampler) prime() error {
	r.primed = true

	for i := range r.win {
		if i == 0 && r.lowpass {
			// The first frame seeds the filter state.
			n, err := r.src.ReadSamples(r.frame)
			if errors.Is(err, io.EOF) {
				r.eof = true
			} else if err != nil {
				return fmt.Errorf("resampler read: %w", err)
			}
			if n < r.channels {
				return io.EOF
			}
			copy(r.state, r.frame)
			copy(r.win[0], r.frame)
			r.valid[0] = true
			continue
		}

		ok, err := r.readFrame()
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if !ok {
			if i == 0 {
				return io.EOF
			}
			for j := i; j < len(r.win); j++ {
				copy(r.win[j], r.win[i-1])
				r.valid[j] = true
			}
			return nil
		}

		copy(r.win[i], r.frame)
		r.valid[i] = true
	}

	return nil
}

// advance shifts the window one frame forward.
func (r *Resampler) advance() error {
	if r.eof {
		return io.EOF
	}

	first := r.win[0]
	copy(r.win[:], r.win[1:])
	r.win[3] = first
	copy(r.valid[:], r.valid[1:])

	ok, err := r.readFrame()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	r.valid[3] = ok
	if ok {
		copy(r.win[3], r.frame)
		return nil
	}
	if r.eof {
		return io.EOF
	}
	return nil
}

// ReadSamples fills dst at the target rate. len(dst) must be a multiple of
// the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	frames := len(dst) / r.channels
	written := 0

	for written < frames {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}

		if !r.valid[1] || !r.valid[2] {
			return written * r.channels, io.EOF
		}

		t := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			y1, y2 := r.win[1][c], r.win[2][c]
			y0, y3 := y1, y2
			if r.valid[0] {
				y0 = r.win[0][c]
			}
			if r.valid[3] {
				y3 = r.win[3][c]
			}
			out[c] = utils.CubicInterpolate(y0, y1, y2, y3, t)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
