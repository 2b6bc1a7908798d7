// SPDX-License-Identifier: EPL-2.0

package device

import "errors"

var (
	// ErrContextMismatch is returned when a second stream asks for a format
	// other than the one the process-wide output context was opened with.
	ErrContextMismatch = errors.New("output context already open with another format")

	ErrClosed = errors.New("stream closed")
)
