// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Clamp limits x to [lo, hi].
func Clamp[T ~float32 | ~float64](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Peak returns the largest absolute sample value in buf.
func Peak(buf []float32) float32 {
	var peak float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Scale multiplies every sample of buf by gain in place.
func Scale(buf []float32, gain float32) {
	for i := range buf {
		buf[i] *= gain
	}
}

// ScaleToPeak scales buf so that its peak equals target.
// Silent buffers are left untouched.
func ScaleToPeak(buf []float32, target float32) {
	peak := Peak(buf)
	if peak == 0 {
		return
	}
	Scale(buf, target/peak)
}

// DBToGain converts decibels to a linear gain factor.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}
