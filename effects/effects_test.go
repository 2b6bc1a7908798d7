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

func TestParams_Clamped(t *testing.T) {
	t.Parallel()

	r := effects.NewReverb(effects.ReverbParams{RoomSize: 2, Damping: -1, Wet: 5, Dry: -3})
	if got, want := r.Params(), (effects.ReverbParams{RoomSize: 1, Damping: 0, Wet: 1, Dry: 0}); got != want {
		t.Errorf("reverb params = %+v, want %+v", got, want)
	}

	d := effects.NewDelay(effects.DelayParams{Seconds: 10, Feedback: 1.5, Mix: -0.1})
	if got, want := d.Params(), (effects.DelayParams{Seconds: 2, Feedback: 1, Mix: 0}); got != want {
		t.Errorf("delay params = %+v, want %+v", got, want)
	}

	x := effects.NewDistortion(effects.DistortionParams{DriveDB: 500})
	if got := x.Params().DriveDB; got != effects.MaxDriveDB {
		t.Errorf("drive = %v, want %v", got, effects.MaxDriveDB)
	}
	if got := effects.NewDistortion(effects.DistortionParams{DriveDB: -6}).Params().DriveDB; got != 0 {
		t.Errorf("negative drive clamped to %v, want 0", got)
	}

	c := effects.NewChorus(effects.ChorusParams{RateHz: 0, Depth: 3, CentreDelayMS: 100, Feedback: 1, Mix: 2})
	if got, want := c.Params(), (effects.ChorusParams{RateHz: 0.01, Depth: 1, CentreDelayMS: 50, Feedback: 0.95, Mix: 1}); got != want {
		t.Errorf("chorus params = %+v, want %+v", got, want)
	}
}

func TestDelay_Echo(t *testing.T) {
	t.Parallel()

	// 10 frames of delay at 1 kHz.
	d := effects.NewDelay(effects.DelayParams{Seconds: 0.01, Feedback: 0.5, Mix: 0.5})
	block := make([]float32, 40)
	block[0] = 1
	d.Apply(block, 1, 1000)

	want := map[int]float32{0: 0.5, 10: 0.5, 20: 0.25, 30: 0.125}
	for i, v := range block {
		if w := want[i]; math.Abs(float64(v-w)) > 1e-6 {
			t.Errorf("block[%d] = %v, want %v", i, v, w)
		}
	}
}

func TestDelay_StateAcrossBlocks(t *testing.T) {
	t.Parallel()

	d := effects.NewDelay(effects.DelayParams{Seconds: 0.004, Mix: 1})
	first := []float32{1, 0, 0}
	second := []float32{0, 0, 0}
	d.Apply(first, 1, 1000)
	d.Apply(second, 1, 1000)

	if second[1] != 1 {
		t.Errorf("echo did not carry across blocks: %v %v", first, second)
	}

	d.Reset()
	third := []float32{0, 0, 0, 0, 0}
	d.Apply(third, 1, 1000)
	if utils.Peak(third) != 0 {
		t.Errorf("Reset() left state behind: %v", third)
	}
}

func TestDelay_Zero(t *testing.T) {
	t.Parallel()

	block := []float32{0.1, 0.2}
	effects.NewDelay(effects.DelayParams{Seconds: 0, Mix: 1}).Apply(block, 1, 8000)
	if !slices.Equal(block, []float32{0.1, 0.2}) {
		t.Errorf("zero delay changed the block: %v", block)
	}
}

func TestDistortion(t *testing.T) {
	t.Parallel()

	d := effects.NewDistortion(effects.DistortionParams{DriveDB: 20})
	block := []float32{0, 0.01, -0.05, 1}
	d.Apply(block, 1, 8000)

	for i, x := range []float64{0, 0.01, -0.05, 1} {
		want := math.Tanh(10 * x)
		if math.Abs(float64(block[i])-want) > 1e-6 {
			t.Errorf("block[%d] = %v, want %v", i, block[i], want)
		}
	}
	if utils.Peak(block) > 1 {
		t.Error("tanh output exceeded 1")
	}
}

func TestReverb(t *testing.T) {
	t.Parallel()

	t.Run("dry only", func(t *testing.T) {
		t.Parallel()

		r := effects.NewReverb(effects.ReverbParams{RoomSize: 0.5, Wet: 0, Dry: 0.5})
		block := []float32{0.4, -0.2, 0.8}
		r.Apply(block, 1, 44100)
		if !slices.Equal(block, []float32{0.2, -0.1, 0.4}) {
			t.Errorf("dry only = %v", block)
		}
	})

	t.Run("tail", func(t *testing.T) {
		t.Parallel()

		r := effects.NewReverb(effects.ReverbParams{RoomSize: 0.8, Damping: 0.2, Wet: 1, Dry: 0})
		block := make([]float32, 2*4410)
		block[0], block[1] = 1, 1
		r.Apply(block, 2, 44100)

		// Nothing comes out before the shortest comb delay, then a tail.
		if utils.Peak(block[:2*200]) != 0 {
			t.Error("wet output before the first reflection")
		}
		if utils.Peak(block[2*2000:]) == 0 {
			t.Error("no reverb tail")
		}
		// The right channel is spread, so the channels differ.
		var diff float32
		for f := range 4410 {
			diff += float32(math.Abs(float64(block[2*f] - block[2*f+1])))
		}
		if diff == 0 {
			t.Error("left and right channels are identical")
		}
	})
}

func TestChorus(t *testing.T) {
	t.Parallel()

	c := effects.NewChorus(effects.DefaultChorusParams())

	silent := make([]float32, 2048)
	c.Apply(silent, 2, 44100)
	if utils.Peak(silent) != 0 {
		t.Error("chorus of silence is not silent")
	}

	block := audiotest.Sine(4096, 44100, 440, 0.5)
	dry := slices.Clone(block)
	c.Apply(block, 1, 44100)

	changed := false
	for i, v := range block {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("block[%d] = %v", i, v)
		}
		if v != dry[i] {
			changed = true
		}
	}
	if !changed {
		t.Error("chorus left the signal untouched")
	}
}

func TestLimiter(t *testing.T) {
	t.Parallel()

	l := effects.NewLimiter(0)
	if l.Threshold != effects.DefaultLimitThreshold {
		t.Errorf("NewLimiter(0).Threshold = %v, want default", l.Threshold)
	}

	block := []float32{0.4, -1.6}
	if !l.Limit(block) {
		t.Error("Limit() = false for a block over threshold")
	}
	if math.Abs(float64(block[0]-0.2)) > 1e-6 || math.Abs(float64(block[1]+0.8)) > 1e-6 {
		t.Errorf("Limit() = %v, want [0.2 -0.8]", block)
	}

	quiet := []float32{0.1, 0.8}
	if l.Limit(quiet) {
		t.Error("Limit() = true for a block at threshold")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, name := range effects.Available() {
		e, err := effects.New(name)
		if err != nil {
			t.Fatalf("New(%q) error = %v", name, err)
		}
		if e.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, e.Name())
		}
	}

	if _, err := effects.New("flanger"); !errors.Is(err, effects.ErrUnknownEffect) {
		t.Errorf("New(flanger) error = %v, want ErrUnknownEffect", err)
	}
}

func TestDefaultBoard(t *testing.T) {
	t.Parallel()

	c := effects.DefaultBoard()
	if want := []string{"reverb", "delay", "distortion"}; !slices.Equal(c.Names(), want) {
		t.Errorf("DefaultBoard() = %v, want %v", c.Names(), want)
	}
}
