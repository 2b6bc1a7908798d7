// SPDX-License-Identifier: EPL-2.0

package audsampler

import (
	"math"

	"github.com/ik5/audsampler/audio"
)

const (
	toneFreq     = 261.63 // middle C
	toneDuration = 2.0    // seconds
	toneDecay    = 3.0
)

// DefaultTone is a two second decaying sine at middle C with a soft second
// harmonic, so the sampler makes sound without a sample file.
func DefaultTone(channels, sampleRate int) *audio.Buffer {
	frames := int(toneDuration * float64(sampleRate))
	data := make([]float32, frames*channels)

	attack := sampleRate / 200
	for i := range frames {
		t := float64(i) / float64(sampleRate)
		env := math.Exp(-toneDecay * t)
		if i < attack {
			env *= float64(i) / float64(attack)
		}

		w := 2 * math.Pi * toneFreq * t
		v := float32(0.6 * env * (math.Sin(w) + 0.3*math.Sin(2*w)))
		for c := range channels {
			data[i*channels+c] = v
		}
	}

	return &audio.Buffer{Channels: channels, SampleRate: sampleRate, Data: data}
}
