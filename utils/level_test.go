// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		x, lo, hi, want float64
	}{
		{"inside", 0.5, 0, 1, 0.5},
		{"below", -0.2, 0, 1, 0},
		{"above", 1.7, 0, 1, 1},
		{"at low edge", 0, 0, 1, 0},
		{"at high edge", 1, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Clamp(tt.x, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.x, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

func TestPeak(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		buf  []float32
		want float32
	}{
		{"empty", nil, 0},
		{"silence", []float32{0, 0, 0}, 0},
		{"positive peak", []float32{0.1, 0.8, -0.3}, 0.8},
		{"negative peak", []float32{0.1, -0.9, 0.3}, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Peak(tt.buf); got != tt.want {
				t.Errorf("Peak() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScaleToPeak(t *testing.T) {
	t.Parallel()

	buf := []float32{0.25, -0.5, 0.1}
	ScaleToPeak(buf, 0.7)

	if got := Peak(buf); math.Abs(float64(got-0.7)) > 1e-6 {
		t.Errorf("Peak after ScaleToPeak = %v, want 0.7", got)
	}
	if buf[1] >= 0 {
		t.Errorf("ScaleToPeak flipped sign: buf[1] = %v", buf[1])
	}

	silent := []float32{0, 0}
	ScaleToPeak(silent, 0.7)
	if silent[0] != 0 || silent[1] != 0 {
		t.Errorf("ScaleToPeak changed silence: %v", silent)
	}
}

func TestDBToGain(t *testing.T) {
	t.Parallel()

	if got := DBToGain(0); got != 1 {
		t.Errorf("DBToGain(0) = %v, want 1", got)
	}
	if got := DBToGain(20); math.Abs(got-10) > 1e-9 {
		t.Errorf("DBToGain(20) = %v, want 10", got)
	}
}

func TestPeak_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	buf := make([]float32, 1024)
	allocs := testing.AllocsPerRun(100, func() {
		_ = Peak(buf)
		Scale(buf, 0.5)
	})

	if allocs > 0 {
		t.Errorf("Peak/Scale allocated %v times, want 0", allocs)
	}
}
