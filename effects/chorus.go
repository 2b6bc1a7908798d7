// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"math"

	"github.com/ik5/audsampler/utils"
)

const (
	// maxModulationMS is the delay swing at depth 1.
	maxModulationMS = 20.0
	maxCentreMS     = 50.0
)

// ChorusParams: RateHz in [0.01, 10], Depth in [0, 1], CentreDelayMS in
// [1, 50], Feedback in [0, 0.95], Mix in [0, 1].
type ChorusParams struct {
	RateHz        float64
	Depth         float64
	CentreDelayMS float64
	Feedback      float64
	Mix           float64
}

func DefaultChorusParams() ChorusParams {
	return ChorusParams{RateHz: 1, Depth: 0.3, CentreDelayMS: 7, Feedback: 0, Mix: 0.3}
}

func (p ChorusParams) clamped() ChorusParams {
	return ChorusParams{
		RateHz:        utils.Clamp(p.RateHz, 0.01, 10),
		Depth:         utils.Clamp(p.Depth, 0, 1),
		CentreDelayMS: utils.Clamp(p.CentreDelayMS, 1, maxCentreMS),
		Feedback:      utils.Clamp(p.Feedback, 0, 0.95),
		Mix:           utils.Clamp(p.Mix, 0, 1),
	}
}

// Chorus mixes the input with a copy read from a delay line whose length
// is swept by a sine LFO. Odd channels run the LFO a quarter cycle ahead.
type Chorus struct {
	params     ChorusParams
	line       []float32 // interleaved ring
	frames     int
	pos        int
	phase      float64
	channels   int
	sampleRate int
}

func NewChorus(p ChorusParams) *Chorus {
	return &Chorus{params: p.clamped()}
}

func (c *Chorus) Name() string         { return "chorus" }
func (c *Chorus) Params() ChorusParams { return c.params }

func (c *Chorus) Prepare(channels, sampleRate int) {
	c.channels, c.sampleRate = channels, sampleRate
	c.frames = int(math.Ceil((maxCentreMS+maxModulationMS)*float64(sampleRate)/1000)) + 2
	c.line = make([]float32, c.frames*channels)
	c.pos = 0
	c.phase = 0
}

func (c *Chorus) Reset() {
	clear(c.line)
	c.pos = 0
	c.phase = 0
}

func (c *Chorus) Apply(block []float32, channels, sampleRate int) {
	if c.channels != channels || c.sampleRate != sampleRate {
		c.Prepare(channels, sampleRate)
	}

	perMS := float64(sampleRate) / 1000
	centre := c.params.CentreDelayMS * perMS
	swing := c.params.Depth * maxModulationMS * perMS / 2
	step := 2 * math.Pi * c.params.RateHz / float64(sampleRate)
	fb := float32(c.params.Feedback)
	mix := float32(c.params.Mix)

	for f := 0; f+channels <= len(block); f += channels {
		for ch := range channels {
			lfo := math.Sin(c.phase + float64(ch%2)*math.Pi/2)
			delayed := c.read(ch, centre+swing*(1+lfo))

			x := block[f+ch]
			c.line[c.pos*channels+ch] = x + delayed*fb
			block[f+ch] = x*(1-mix) + delayed*mix
		}

		if c.pos++; c.pos == c.frames {
			c.pos = 0
		}
		if c.phase += step; c.phase >= 2*math.Pi {
			c.phase -= 2 * math.Pi
		}
	}
}

// read returns channel ch delay frames behind the write position, linearly
// interpolated.
func (c *Chorus) read(ch int, delay float64) float32 {
	back := int(delay)
	frac := float32(delay - float64(back))

	at := func(n int) float32 {
		i := (c.pos - n) % c.frames
		if i < 0 {
			i += c.frames
		}
		return c.line[i*c.channels+ch]
	}

	a, b := at(back), at(back+1)
	return a + (b-a)*frac
}
