// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"io"
	"time"
)

// StreamConfig describes the stream a Driver must open.
type StreamConfig struct {
	SampleRate int
	Channels   int
	Format     Format
	BlockSize  int
}

// BlockDuration is the time one block covers.
func (s StreamConfig) BlockDuration() time.Duration {
	return time.Duration(s.BlockSize) * time.Second / time.Duration(s.SampleRate)
}

// Driver opens an output stream that pulls encoded PCM from r.
type Driver interface {
	Open(cfg StreamConfig, r io.Reader) (Stream, error)
}

// Stream is an open output. Err reports asynchronous failures of the
// device after Play returned.
type Stream interface {
	Play() error
	Close() error
	Err() error
}
