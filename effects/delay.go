// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"math"

	"github.com/ik5/audsampler/utils"
)

const MaxDelaySeconds = 2.0

// DelayParams: Seconds in [0, 2], Feedback and Mix in [0, 1].
type DelayParams struct {
	Seconds  float64
	Feedback float64
	Mix      float64
}

func DefaultDelayParams() DelayParams {
	return DelayParams{Seconds: 0.3, Feedback: 0.2, Mix: 0.3}
}

func (p DelayParams) clamped() DelayParams {
	return DelayParams{
		Seconds:  utils.Clamp(p.Seconds, 0, MaxDelaySeconds),
		Feedback: utils.Clamp(p.Feedback, 0, 1),
		Mix:      utils.Clamp(p.Mix, 0, 1),
	}
}

// Delay is a feedback echo with one ring buffer per channel.
type Delay struct {
	params     DelayParams
	line       []float32 // interleaved ring
	pos        int       // frame index into line
	channels   int
	sampleRate int
}

func NewDelay(p DelayParams) *Delay {
	return &Delay{params: p.clamped()}
}

func (d *Delay) Name() string        { return "delay" }
func (d *Delay) Params() DelayParams { return d.params }

func (d *Delay) Prepare(channels, sampleRate int) {
	d.channels, d.sampleRate = channels, sampleRate
	frames := int(math.Round(d.params.Seconds * float64(sampleRate)))
	d.line = make([]float32, frames*channels)
	d.pos = 0
}

func (d *Delay) Reset() {
	clear(d.line)
	d.pos = 0
}

func (d *Delay) Apply(block []float32, channels, sampleRate int) {
	if d.channels != channels || d.sampleRate != sampleRate {
		d.Prepare(channels, sampleRate)
	}
	if len(d.line) == 0 {
		return
	}

	fb := float32(d.params.Feedback)
	mix := float32(d.params.Mix)
	frames := len(d.line) / channels

	for f := 0; f+channels <= len(block); f += channels {
		tap := d.line[d.pos*channels : (d.pos+1)*channels]
		for c, x := range block[f : f+channels] {
			delayed := tap[c]
			tap[c] = x + delayed*fb
			block[f+c] = x*(1-mix) + delayed*mix
		}
		if d.pos++; d.pos == frames {
			d.pos = 0
		}
	}
}
