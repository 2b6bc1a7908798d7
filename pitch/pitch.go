// SPDX-License-Identifier: EPL-2.0

// Package pitch transposes samples by resampling them.
//
// Shift allocates and may take milliseconds on long samples. Call it from
// the control path only.
package pitch

import (
	"math"

	"github.com/ik5/audsampler/audio"
	"github.com/ik5/audsampler/utils"
)

const (
	// DefaultBaseNote is the MIDI note a sample plays back unshifted (C4).
	DefaultBaseNote = 60

	// Headroom is the peak every shifted buffer is normalized to.
	Headroom = 0.7

	// taps on each side of the anti-alias kernel's center
	halfTaps = 32
)

// Semitones returns the transposition that maps baseNote onto note.
func Semitones(note, baseNote int) float64 {
	return float64(note - baseNote)
}

// Ratio returns the playback speed for a transposition, 2^(semitones/12).
func Ratio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// Frames returns the length of a buffer of frames frames after shifting.
func Frames(frames int, semitones float64) int {
	return int(math.Round(float64(frames) / Ratio(semitones)))
}

// Shift returns a new buffer transposed by semitones. Every channel is
// resampled on its own with cubic interpolation and the result is
// normalized to Headroom. When the pitch goes up the source is low-passed
// below the new Nyquist frequency first. buf is not modified.
func Shift(buf *audio.Buffer, semitones float64) *audio.Buffer {
	ratio := Ratio(semitones)
	channels := buf.Channels
	out := &audio.Buffer{
		Channels:   channels,
		SampleRate: buf.SampleRate,
		Data:       make([]float32, Frames(buf.Frames(), semitones)*channels),
	}
	if len(out.Data) == 0 {
		return out
	}

	src := buf.Data
	if ratio > 1 {
		src = lowpass(src, channels, 0.5/ratio)
	}

	frames := len(out.Data) / channels
	for ch := range channels {
		for f := range frames {
			out.Data[f*channels+ch] = utils.CubicAt(src, channels, ch, float64(f)*ratio)
		}
	}

	utils.ScaleToPeak(out.Data, Headroom)

	return out
}

// lowpass returns a copy of data filtered by a Blackman windowed sinc with
// its cutoff at cutoff cycles per frame. The kernel has unity gain at DC
// and the edge frames are held past either end.
func lowpass(data []float32, channels int, cutoff float64) []float32 {
	kernel := sincKernel(cutoff)
	frames := len(data) / channels
	out := make([]float32, len(data))

	for f := range frames {
		for ch := range channels {
			var acc float64
			for i, k := range kernel {
				j := min(max(f+i-halfTaps, 0), frames-1)
				acc += k * float64(data[j*channels+ch])
			}
			out[f*channels+ch] = float32(acc)
		}
	}

	return out
}

func sincKernel(cutoff float64) []float64 {
	const n = 2 * halfTaps
	k := make([]float64, n+1)

	var sum float64
	for i := range k {
		x := float64(i - halfTaps)
		v := 2 * cutoff
		if x != 0 {
			v = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		w := 0.42 - 0.5*math.Cos(2*math.Pi*float64(i)/n) + 0.08*math.Cos(4*math.Pi*float64(i)/n)
		k[i] = v * w
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}

	return k
}
