// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 converts a normalized sample to 16-bit PCM, clamping to [-1, 1].
func Float32ToInt16(x float32) int16 {
	x = Clamp(x, -1, 1)

	// 32767 keeps +1.0 from overflowing
	return int16(x * 32767.0)
}
