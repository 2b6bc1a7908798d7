// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/ik5/audsampler/effects"
)

// Format is the sample encoding handed to the device.
type Format int

const (
	FormatFloat32LE Format = iota
	FormatInt16LE
)

func (f Format) String() string {
	switch f {
	case FormatFloat32LE:
		return "f32le"
	case FormatInt16LE:
		return "s16le"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// BytesPerSample returns the encoded size of one sample.
func (f Format) BytesPerSample() int {
	if f == FormatInt16LE {
		return 2
	}
	return 4
}

// ParseFormat accepts "f32", "f32le", "float32", "s16", "s16le" and "int16".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "f32", "f32le", "float32":
		return FormatFloat32LE, nil
	case "s16", "s16le", "int16":
		return FormatInt16LE, nil
	}
	return 0, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, s)
}

// Config fixes the stream format for the lifetime of an Engine.
type Config struct {
	SampleRate int
	Channels   int
	// BlockSize is the number of frames rendered per block.
	BlockSize      int
	Format         Format
	LimitThreshold float32
}

func DefaultConfig() Config {
	return Config{
		SampleRate:     44100,
		Channels:       1,
		BlockSize:      512,
		Format:         FormatFloat32LE,
		LimitThreshold: effects.DefaultLimitThreshold,
	}
}

func (c Config) Validate() error {
	switch {
	case c.SampleRate < 8000 || c.SampleRate > 192000:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	case c.Channels != 1 && c.Channels != 2:
		return fmt.Errorf("%w: %d channels", ErrInvalidConfig, c.Channels)
	case c.BlockSize < 16 || c.BlockSize > 16384:
		return fmt.Errorf("%w: block size %d", ErrInvalidConfig, c.BlockSize)
	case c.Format != FormatFloat32LE && c.Format != FormatInt16LE:
		return fmt.Errorf("%w: format %v", ErrInvalidConfig, c.Format)
	case c.LimitThreshold <= 0 || c.LimitThreshold > 1:
		return fmt.Errorf("%w: limit threshold %v", ErrInvalidConfig, c.LimitThreshold)
	}
	return nil
}

// BlockDuration is the real-time budget of one block.
func (c Config) BlockDuration() time.Duration {
	return time.Duration(c.BlockSize) * time.Second / time.Duration(c.SampleRate)
}

// BlockBytes is the encoded size of one block.
func (c Config) BlockBytes() int {
	return c.BlockSize * c.Channels * c.Format.BytesPerSample()
}

func (c Config) stream() StreamConfig {
	return StreamConfig{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		Format:     c.Format,
		BlockSize:  c.BlockSize,
	}
}
