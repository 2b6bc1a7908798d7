// SPDX-License-Identifier: EPL-2.0

package utils

// CubicInterpolate performs Catmull-Rom interpolation.
// x is the fractional position between y1 and y2 (0 <= x <= 1);
// y0..y3 are four consecutive samples.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

// CubicAt interpolates channel ch of interleaved data at fractional frame pos.
// Neighbours outside [0, frames) repeat the edge frame.
func CubicAt(data []float32, channels, ch int, pos float64) float32 {
	frames := len(data) / channels
	if frames == 0 {
		return 0
	}

	i := int(pos)
	x := float32(pos - float64(i))

	at := func(f int) float32 {
		if f < 0 {
			f = 0
		} else if f >= frames {
			f = frames - 1
		}
		return data[f*channels+ch]
	}

	return CubicInterpolate(at(i-1), at(i), at(i+1), at(i+2), x)
}
