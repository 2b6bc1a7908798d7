// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"
	"slices"
	"strings"
)

var constructors = map[string]func() Effect{
	"reverb":     func() Effect { return NewReverb(DefaultReverbParams()) },
	"delay":      func() Effect { return NewDelay(DefaultDelayParams()) },
	"distortion": func() Effect { return NewDistortion(DefaultDistortionParams()) },
	"chorus":     func() Effect { return NewChorus(DefaultChorusParams()) },
	"limiter":    func() Effect { return NewLimiter(DefaultLimitThreshold) },
}

// New builds the named effect with its default parameters.
func New(name string) (Effect, error) {
	ctor, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
	return ctor(), nil
}

// Available lists the names New accepts.
func Available() []string {
	names := make([]string, 0, len(constructors))
	for k := range constructors {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// DefaultBoard is the sampler's stock effect board: a large room, a half
// second echo and some drive.
func DefaultBoard() *Chain {
	return NewChain(
		NewReverb(ReverbParams{RoomSize: 0.8, Damping: 0.5, Wet: 0.3, Dry: 0.7}),
		NewDelay(DelayParams{Seconds: 0.5, Feedback: 0.3, Mix: 0.5}),
		NewDistortion(DistortionParams{DriveDB: 20}),
	)
}
