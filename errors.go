// SPDX-License-Identifier: EPL-2.0

package audsampler

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid sampler config")

	// ErrRunning is returned by Render while the sampler is playing.
	ErrRunning = errors.New("sampler is playing")
)
