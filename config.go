// SPDX-License-Identifier: EPL-2.0

package audsampler

import (
	"fmt"
	"time"

	"github.com/ik5/audsampler/effects"
	"github.com/ik5/audsampler/engine"
	"github.com/ik5/audsampler/pitch"
	"github.com/ik5/audsampler/router"
	"github.com/ik5/audsampler/voice"
)

// Config describes a Sampler.
type Config struct {
	Engine engine.Config

	// SamplePath is loaded at start. Empty means the built-in tone.
	SamplePath string
	// BaseNote is the MIDI note the sample plays unshifted.
	BaseNote        int
	ReleaseDuration time.Duration

	// Board puts the stock effect board at the head of the chain.
	Board bool
	// Effects names further effects in order.
	Effects []string

	QueueDepth         int
	ShiftCache         int
	VelocitySensitive  bool
	StopOnSampleChange bool
}

func DefaultConfig() Config {
	return Config{
		Engine:             engine.DefaultConfig(),
		BaseNote:           pitch.DefaultBaseNote,
		ReleaseDuration:    voice.DefaultReleaseDuration,
		QueueDepth:         router.DefaultQueueDepth,
		ShiftCache:         router.DefaultShiftCache,
		StopOnSampleChange: true,
	}
}

func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch {
	case c.BaseNote < 0 || c.BaseNote > voice.MaxNote:
		return fmt.Errorf("%w: base note %d", ErrInvalidConfig, c.BaseNote)
	case c.ReleaseDuration < 0:
		return fmt.Errorf("%w: release %v", ErrInvalidConfig, c.ReleaseDuration)
	case c.QueueDepth < 1:
		return fmt.Errorf("%w: queue depth %d", ErrInvalidConfig, c.QueueDepth)
	case c.ShiftCache < 0:
		return fmt.Errorf("%w: shift cache %d", ErrInvalidConfig, c.ShiftCache)
	}

	for _, name := range c.Effects {
		if _, err := effects.New(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

func (c Config) chain() *effects.Chain {
	chain := effects.NewChain()
	if c.Board {
		chain = effects.DefaultBoard()
	}

	for _, name := range c.Effects {
		fx, _ := effects.New(name)
		chain.Append(fx)
	}
	return chain
}
