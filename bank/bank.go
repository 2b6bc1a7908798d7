// SPDX-License-Identifier: EPL-2.0

// Package bank holds the sampler's current base sample.
//
// Readers get the sample through an atomic pointer and never block. Load
// decodes, converts and publishes a new sample; a failed Load leaves the
// previous one in place.
package bank

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ik5/audsampler/audio"
)

// Sample is a published base sample.
type Sample struct {
	Buffer *audio.Buffer
	// Path is the file the sample came from, or the name given to Set.
	Path string
	// Generation increases by one on every successful Load or Set.
	Generation uint64
}

type Bank struct {
	reg        *audio.Registry
	sampleRate int
	channels   int

	current atomic.Pointer[Sample]
	gen     atomic.Uint64

	// mtx serializes loaders. Readers never take it.
	mtx sync.Mutex
}

// New returns an empty bank whose samples are converted to channels and
// sampleRate on load.
func New(reg *audio.Registry, sampleRate, channels int) *Bank {
	return &Bank{
		reg:        reg,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Current returns the current buffer, or nil before the first Load or Set.
func (b *Bank) Current() *audio.Buffer {
	if s := b.current.Load(); s != nil {
		return s.Buffer
	}
	return nil
}

// Snapshot returns the current sample with its metadata.
func (b *Bank) Snapshot() Sample {
	if s := b.current.Load(); s != nil {
		return *s
	}
	return Sample{}
}

func (b *Bank) SampleRate() int { return b.sampleRate }
func (b *Bank) Channels() int   { return b.channels }

// Load decodes the file at path and makes it current.
func (b *Bank) Load(path string) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	buf, err := b.decode(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSampleLoad, path, err)
	}

	b.publish(buf, path)

	return nil
}

// Set installs an in-memory buffer under name. It is converted to the bank
// format when needed.
func (b *Bank) Set(buf *audio.Buffer, name string) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	conv, err := b.convert(buf)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSampleLoad, name, err)
	}

	b.publish(conv, name)

	return nil
}

func (b *Bank) publish(buf *audio.Buffer, path string) {
	b.current.Store(&Sample{
		Buffer:     buf,
		Path:       path,
		Generation: b.gen.Add(1),
	})
}

func (b *Bank) decode(path string) (*audio.Buffer, error) {
	dec, ok := b.reg.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	defer src.Close()

	if ch := src.Channels(); ch < 1 || ch > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedChannels, ch)
	}

	buf, err := audio.ReadAll(src)
	if err != nil {
		return nil, err
	}

	return b.convert(buf)
}

func (b *Bank) convert(buf *audio.Buffer) (*audio.Buffer, error) {
	if buf == nil || buf.Frames() == 0 {
		return nil, ErrEmptySample
	}
	if buf.Channels < 1 || buf.Channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedChannels, buf.Channels)
	}

	out, err := audio.ConvertBuffer(buf, b.channels, b.sampleRate)
	if err != nil {
		return nil, err
	}
	if out.Frames() == 0 {
		return nil, ErrEmptySample
	}

	return out, nil
}
