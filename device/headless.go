// SPDX-License-Identifier: EPL-2.0

//go:build headless

package device

import "github.com/ik5/audsampler/engine"

// Default returns Null; this build has no sound card support.
func Default() engine.Driver { return Null{} }
