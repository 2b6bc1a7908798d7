// SPDX-License-Identifier: EPL-2.0

package voice

import "errors"

var (
	ErrInvalidNote     = errors.New("note out of MIDI range")
	ErrChannelMismatch = errors.New("buffer channel count does not match pool")
	ErrNoBuffer        = errors.New("no buffer for voice")
)
