// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Convert returns src adapted to the requested channel count (1 or 2) and
// sample rate. Stages that would be no-ops are skipped.
func Convert(src Source, channels, sampleRate int) (Source, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	in := src.Channels()
	if in < 1 || in > 2 {
		return nil, fmt.Errorf("%w: source has %d channels", ErrUnsupportedChannels, in)
	}

	var out Source = src
	switch {
	case channels == in:
	case channels == 1:
		out = NewMonoMixer(out)
	case channels == 2:
		out = NewStereoSplitter(out)
	default:
		return nil, fmt.Errorf("%w: %d channels requested", ErrUnsupportedChannels, channels)
	}

	if out.SampleRate() != sampleRate {
		out = NewResampler(out, sampleRate)
	}

	return out, nil
}

// ConvertBuffer is Convert for a fully decoded buffer. b is returned as is
// when it already matches.
func ConvertBuffer(b *Buffer, channels, sampleRate int) (*Buffer, error) {
	if b.Channels == channels && b.SampleRate == sampleRate {
		return b, nil
	}

	src, err := Convert(b.Source(), channels, sampleRate)
	if err != nil {
		return nil, err
	}

	return ReadAll(src)
}
