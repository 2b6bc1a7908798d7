// SPDX-License-Identifier: EPL-2.0

package effects

import "github.com/ik5/audsampler/utils"

// Freeverb tunings in samples at 44.1 kHz.
var (
	combTuning    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTuning = [...]int{556, 441, 341, 225}
)

const (
	stereoSpread = 23
	reverbInput  = 0.015
	reverbWet    = 3
	roomScale    = 0.28
	roomOffset   = 0.7
	dampScale    = 0.4
	allpassGain  = 0.5
	tuningRate   = 44100
)

// ReverbParams are all in [0, 1].
type ReverbParams struct {
	RoomSize float64
	Damping  float64
	Wet      float64
	Dry      float64
}

func DefaultReverbParams() ReverbParams {
	return ReverbParams{RoomSize: 0.5, Damping: 0.5, Wet: 0.2, Dry: 0.8}
}

func (p ReverbParams) clamped() ReverbParams {
	return ReverbParams{
		RoomSize: utils.Clamp(p.RoomSize, 0, 1),
		Damping:  utils.Clamp(p.Damping, 0, 1),
		Wet:      utils.Clamp(p.Wet, 0, 1),
		Dry:      utils.Clamp(p.Dry, 0, 1),
	}
}

type comb struct {
	buf    []float32
	idx    int
	filter float32
}

func (c *comb) process(in, feedback, damp float32) float32 {
	out := c.buf[c.idx]
	c.filter = out*(1-damp) + c.filter*damp
	c.buf[c.idx] = in + c.filter*feedback
	if c.idx++; c.idx == len(c.buf) {
		c.idx = 0
	}
	return out
}

type allpass struct {
	buf []float32
	idx int
}

func (a *allpass) process(in float32) float32 {
	delayed := a.buf[a.idx]
	a.buf[a.idx] = in + delayed*allpassGain
	if a.idx++; a.idx == len(a.buf) {
		a.idx = 0
	}
	return delayed - in
}

type reverbChannel struct {
	combs     [len(combTuning)]comb
	allpasses [len(allpassTuning)]allpass
}

// Reverb is a Freeverb style network of eight damped comb filters feeding
// four all-pass filters, one network per channel.
type Reverb struct {
	params     ReverbParams
	feedback   float32
	damp       float32
	channels   []reverbChannel
	sampleRate int
}

func NewReverb(p ReverbParams) *Reverb {
	p = p.clamped()
	return &Reverb{
		params:   p,
		feedback: float32(p.RoomSize*roomScale + roomOffset),
		damp:     float32(p.Damping * dampScale),
	}
}

func (r *Reverb) Name() string         { return "reverb" }
func (r *Reverb) Params() ReverbParams { return r.params }

func (r *Reverb) Prepare(channels, sampleRate int) {
	r.sampleRate = sampleRate
	r.channels = make([]reverbChannel, channels)

	scale := func(n, spread int) int {
		return max(1, (n+spread)*sampleRate/tuningRate)
	}

	for c := range r.channels {
		spread := 0
		if c%2 == 1 {
			spread = stereoSpread
		}
		ch := &r.channels[c]
		for i, n := range combTuning {
			ch.combs[i].buf = make([]float32, scale(n, spread))
		}
		for i, n := range allpassTuning {
			ch.allpasses[i].buf = make([]float32, scale(n, spread))
		}
	}
}

func (r *Reverb) Reset() {
	for c := range r.channels {
		ch := &r.channels[c]
		for i := range ch.combs {
			clear(ch.combs[i].buf)
			ch.combs[i].filter = 0
		}
		for i := range ch.allpasses {
			clear(ch.allpasses[i].buf)
		}
	}
}

func (r *Reverb) Apply(block []float32, channels, sampleRate int) {
	if len(r.channels) != channels || r.sampleRate != sampleRate {
		r.Prepare(channels, sampleRate)
	}

	wet := float32(r.params.Wet * reverbWet)
	dry := float32(r.params.Dry)

	for i, x := range block {
		ch := &r.channels[i%channels]
		in := x * reverbInput

		var acc float32
		for j := range ch.combs {
			acc += ch.combs[j].process(in, r.feedback, r.damp)
		}
		for j := range ch.allpasses {
			acc = ch.allpasses[j].process(acc)
		}

		block[i] = x*dry + acc*wet
	}
}
