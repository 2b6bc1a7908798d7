// SPDX-License-Identifier: EPL-2.0

package effects_test

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/ik5/audsampler/effects"
	"github.com/ik5/audsampler/internal/audiotest"
	"github.com/ik5/audsampler/utils"
)

// gain multiplies every sample; it drives blocks past full scale.
type gain struct{ g float32 }

func (g gain) Name() string                    { return "gain" }
func (g gain) Reset()                          {}
func (g gain) Apply(block []float32, _, _ int) { utils.Scale(block, g.g) }

func TestChain_Edit(t *testing.T) {
	t.Parallel()

	c := effects.NewChain()
	c.Append(effects.NewDelay(effects.DefaultDelayParams()))
	c.Append(effects.NewDistortion(effects.DefaultDistortionParams()))
	c.Append(effects.NewChorus(effects.DefaultChorusParams()))

	if want := []string{"delay", "distortion", "chorus"}; !slices.Equal(c.Names(), want) {
		t.Fatalf("Names() = %v, want %v", c.Names(), want)
	}

	if err := c.Remove(1); err != nil {
		t.Fatal(err)
	}
	if want := []string{"delay", "chorus"}; !slices.Equal(c.Names(), want) {
		t.Errorf("after Remove(1) Names() = %v, want %v", c.Names(), want)
	}

	for _, i := range []int{-1, 2, 99} {
		if err := c.Remove(i); !errors.Is(err, effects.ErrIndexOutOfRange) {
			t.Errorf("Remove(%d) error = %v, want ErrIndexOutOfRange", i, err)
		}
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestChain_EffectsIsCopy(t *testing.T) {
	t.Parallel()

	c := effects.NewChain(gain{2}, gain{3})
	list := c.Effects()
	list[0] = gain{100}

	block := []float32{0.01}
	c.Process(block, 1, 8000)
	if math.Abs(float64(block[0]-0.06)) > 1e-6 {
		t.Errorf("Process() = %v, want 0.06", block[0])
	}
}

func TestChain_ProcessPeak(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		chain *effects.Chain
		in    []float32
	}{
		{"empty chain over full scale", effects.NewChain(), audiotest.Const(64, 1.5)},
		{"gain", effects.NewChain(gain{8}), audiotest.Sine(512, 8000, 440, 0.9)},
		{"default board", effects.DefaultBoard(), audiotest.Sine(4096, 44100, 220, 1)},
		{"stacked", effects.NewChain(gain{4}, effects.NewReverb(effects.ReverbParams{RoomSize: 1, Wet: 1, Dry: 1}), gain{4}), audiotest.Sine(2048, 44100, 110, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			block := slices.Clone(tt.in)
			for range 8 {
				tt.chain.Process(block, 1, 44100)
				if p := utils.Peak(block); p > 1 {
					t.Fatalf("peak = %v, want <= 1", p)
				}
				copy(block, tt.in)
			}
		})
	}
}

func TestChain_ProcessNormalizesToOne(t *testing.T) {
	t.Parallel()

	block := []float32{0.5, -2, 1}
	effects.NewChain().Process(block, 1, 8000)

	if want := []float32{0.25, -1, 0.5}; !slices.Equal(block, want) {
		t.Errorf("Process() = %v, want %v", block, want)
	}

	quiet := []float32{0.5, -0.25}
	effects.NewChain().Process(quiet, 1, 8000)
	if !slices.Equal(quiet, []float32{0.5, -0.25}) {
		t.Errorf("Process() changed a block under full scale: %v", quiet)
	}
}

func TestChain_ProcessNoAllocs(t *testing.T) {
	c := effects.DefaultBoard()
	c.Append(effects.NewChorus(effects.DefaultChorusParams()))
	c.Prepare(2, 44100)

	block := audiotest.Sine(1024, 44100, 440, 0.5)
	allocs := testing.AllocsPerRun(50, func() {
		c.Process(block, 2, 44100)
	})
	if allocs != 0 {
		t.Errorf("Process() allocs = %v, want 0", allocs)
	}
}

func BenchmarkChain_DefaultBoard(b *testing.B) {
	c := effects.DefaultBoard()
	c.Prepare(2, 44100)
	block := audiotest.Sine(1024, 44100, 440, 0.5)

	b.ReportAllocs()
	for b.Loop() {
		c.Process(block, 2, 44100)
	}
}
