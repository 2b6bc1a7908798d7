// SPDX-License-Identifier: EPL-2.0

package effects

import "errors"

var (
	ErrIndexOutOfRange = errors.New("effect index out of range")
	ErrUnknownEffect   = errors.New("unknown effect")
)
