// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// StereoSplitter duplicates a mono source onto two channels. A stereo
// source passes through untouched.
type StereoSplitter struct {
	src Source
	tmp []float32
}

func NewStereoSplitter(src Source) *StereoSplitter {
	return &StereoSplitter{
		src: src,
		tmp: make([]float32, 2048),
	}
}

func (s *StereoSplitter) SampleRate() int { return s.src.SampleRate() }
func (s *StereoSplitter) Channels() int   { return 2 }
func (s *StereoSplitter) BufSize() int    { return s.src.BufSize() * 2 }

func (s *StereoSplitter) Close() error {
	if err := s.src.Close(); err != nil {
		return fmt.Errorf("close stereo splitter source: %w", err)
	}
	return nil
}

// ReadSamples fills dst with interleaved L/R pairs. len(dst) must be even.
func (s *StereoSplitter) ReadSamples(dst []float32) (int, error) {
	if len(dst)%2 != 0 {
		return 0, ErrInvalidDstSize
	}
	if s.src.Channels() == 2 {
		return s.src.ReadSamples(dst)
	}

	frames := len(dst) / 2
	if cap(s.tmp) < frames {
		s.tmp = make([]float32, frames)
	}
	s.tmp = s.tmp[:frames]

	n, err := s.src.ReadSamples(s.tmp)
	for i, v := range s.tmp[:n] {
		dst[2*i] = v
		dst[2*i+1] = v
	}

	return 2 * n, err
}
