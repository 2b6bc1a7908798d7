// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"math"

	"github.com/ik5/audsampler/utils"
)

const MaxDriveDB = 60.0

type DistortionParams struct {
	// DriveDB is the pre-gain in decibels, in [0, 60].
	DriveDB float64
}

func DefaultDistortionParams() DistortionParams {
	return DistortionParams{DriveDB: 10}
}

// Distortion is a tanh waveshaper after a fixed pre-gain. It is stateless.
type Distortion struct {
	params DistortionParams
	gain   float64
}

func NewDistortion(p DistortionParams) *Distortion {
	p.DriveDB = utils.Clamp(p.DriveDB, 0, MaxDriveDB)
	return &Distortion{params: p, gain: utils.DBToGain(p.DriveDB)}
}

func (d *Distortion) Name() string             { return "distortion" }
func (d *Distortion) Params() DistortionParams { return d.params }
func (d *Distortion) Reset()                   {}

func (d *Distortion) Apply(block []float32, _, _ int) {
	for i, x := range block {
		block[i] = float32(math.Tanh(d.gain * float64(x)))
	}
}
