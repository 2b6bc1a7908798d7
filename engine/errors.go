// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	// ErrDevice wraps failures to open, start or keep the output stream.
	ErrDevice = errors.New("audio device error")

	ErrInvalidConfig = errors.New("invalid engine config")
	ErrStopped       = errors.New("engine stopped")
)
