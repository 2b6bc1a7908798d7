// SPDX-License-Identifier: EPL-2.0

package voice

import (
	"sync/atomic"

	"github.com/ik5/audsampler/audio"
)

// State of a voice. The only transitions are Active to Releasing, and
// Active or Releasing to Finished.
type State int32

const (
	Active State = iota
	Releasing
	Finished
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Releasing:
		return "releasing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Voice plays one note from its own buffer.
//
// The mixer is the only writer of the cursor and the release window. The
// control path only flips Active to Releasing.
type Voice struct {
	note     uint8
	buf      *audio.Buffer
	gain     float32
	channels int

	// releaseFrames is the full fade length asked for by the pool.
	releaseFrames int64

	state  atomic.Int32
	cursor atomic.Int64

	// Fixed by the mixer on the first block it renders after NoteOff.
	relStart atomic.Int64
	relLen   atomic.Int64
}

func newVoice(note uint8, buf *audio.Buffer, gain float32, releaseFrames int64) *Voice {
	v := &Voice{
		note:          note,
		buf:           buf,
		gain:          gain,
		channels:      buf.Channels,
		releaseFrames: releaseFrames,
	}
	v.relStart.Store(-1)
	return v
}

func (v *Voice) Note() uint8           { return v.note }
func (v *Voice) Buffer() *audio.Buffer { return v.buf }
func (v *Voice) Gain() float32         { return v.gain }
func (v *Voice) State() State          { return State(v.state.Load()) }

// Cursor is the next frame to be played. It never exceeds the buffer
// length.
func (v *Voice) Cursor() int { return int(v.cursor.Load()) }

// ReleaseProgress returns how many frames of the fade have been played and
// the fade length. Both are zero until the mixer has started the fade.
func (v *Voice) ReleaseProgress() (done, total int) {
	start := v.relStart.Load()
	if start < 0 {
		return 0, 0
	}
	total = int(v.relLen.Load())
	return min(int(v.cursor.Load()-start), total), total
}

// release moves an Active voice to Releasing.
func (v *Voice) release() bool {
	return v.state.CompareAndSwap(int32(Active), int32(Releasing))
}

func (v *Voice) finish() {
	v.state.Store(int32(Finished))
}

// mix adds up to frames frames of the voice into out and advances the
// cursor. Frames past the end of the buffer contribute nothing.
func (v *Voice) mix(out []float32, frames int) {
	st := v.State()
	if st == Finished {
		return
	}

	cur := v.cursor.Load()
	total := int64(v.buf.Frames())
	n := min(int64(frames), total-cur)
	ch := v.channels
	data := v.buf.Data

	if st == Active {
		for f := range n {
			src := data[(cur+f)*int64(ch) : (cur+f+1)*int64(ch)]
			dst := out[f*int64(ch) : (f+1)*int64(ch)]
			for c, s := range src {
				dst[c] += s * v.gain
			}
		}
		v.cursor.Store(cur + n)
		if cur+n >= total {
			v.finish()
		}
		return
	}

	start := v.relStart.Load()
	if start < 0 {
		start = cur
		v.relLen.Store(min(v.releaseFrames, total-cur))
		v.relStart.Store(start)
	}
	fade := v.relLen.Load()

	var f int64
	for ; f < n; f++ {
		k := cur + f - start
		if k >= fade {
			break
		}
		g := v.gain * fadeGain(k, fade)
		src := data[(cur+f)*int64(ch) : (cur+f+1)*int64(ch)]
		dst := out[f*int64(ch) : (f+1)*int64(ch)]
		for c, s := range src {
			dst[c] += s * g
		}
	}

	v.cursor.Store(cur + f)
	if cur+f-start >= fade || cur+f >= total {
		v.finish()
	}
}

// fadeGain is the k-th of n points evenly spaced from 1 down to 0.
func fadeGain(k, n int64) float32 {
	if n <= 1 {
		return 1
	}
	return 1 - float32(k)/float32(n-1)
}
