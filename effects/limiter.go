// SPDX-License-Identifier: EPL-2.0

package effects

import "github.com/ik5/audsampler/utils"

// DefaultLimitThreshold guards the summed voices against clipping.
const DefaultLimitThreshold = 0.8

// Limiter scales a whole block down when its peak exceeds Threshold.
type Limiter struct {
	Threshold float32
}

func NewLimiter(threshold float32) *Limiter {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultLimitThreshold
	}
	return &Limiter{Threshold: threshold}
}

func (l *Limiter) Name() string { return "limiter" }
func (l *Limiter) Reset()       {}

func (l *Limiter) Apply(block []float32, _, _ int) {
	l.Limit(block)
}

// Limit scales block and reports whether it had to.
func (l *Limiter) Limit(block []float32) bool {
	if utils.Peak(block) <= l.Threshold {
		return false
	}
	utils.ScaleToPeak(block, l.Threshold)
	return true
}
