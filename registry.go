// SPDX-License-Identifier: EPL-2.0

package audsampler

import (
	"github.com/ik5/audsampler/audio"
	"github.com/ik5/audsampler/formats/aiff"
	"github.com/ik5/audsampler/formats/mp3"
	"github.com/ik5/audsampler/formats/vorbis"
	"github.com/ik5/audsampler/formats/wav"
)

// DefaultRegistry maps the usual file extensions to the bundled decoders.
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})

	return reg
}
