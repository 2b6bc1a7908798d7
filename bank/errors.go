// SPDX-License-Identifier: EPL-2.0

package bank

import "errors"

var (
	// ErrSampleLoad wraps every failure of Load. The cause is joined
	// alongside it so callers can test for either.
	ErrSampleLoad = errors.New("sample load failed")

	ErrUnsupportedFormat   = errors.New("unsupported sample format")
	ErrUnsupportedChannels = errors.New("unsupported channel layout")
	ErrEmptySample         = errors.New("sample has no frames")
)
