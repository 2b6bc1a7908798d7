// SPDX-License-Identifier: EPL-2.0

// Package voice implements the sampler's voices and the pool that maps each
// MIDI note to at most one of them.
//
// The pool is shared by two contexts. Control goroutines call NoteOn,
// NoteOff and ReleaseAll, which hold the pool lock only to edit membership
// or flip a state. The audio goroutine calls Tick, which never waits for
// the lock: if TryLock fails it mixes the voice set it saw on the previous
// block.
package voice

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audsampler/audio"
)

const (
	// MaxNote is the highest MIDI note number.
	MaxNote = 127

	DefaultReleaseDuration = 500 * time.Millisecond
	DefaultMaxBlock        = 4096
)

type Option func(*Pool)

// WithReleaseDuration sets the NoteOff fade length.
func WithReleaseDuration(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.release = d
		}
	}
}

// WithMaxBlock pre-sizes the mix buffer for Tick calls of up to frames
// frames. Larger blocks still work but allocate once.
func WithMaxBlock(frames int) Option {
	return func(p *Pool) {
		if frames > 0 {
			p.maxBlock = frames
		}
	}
}

// Stats counts mixer events since the pool was created.
type Stats struct {
	Ticks         uint64
	StaleTicks    uint64 // blocks mixed from the previous voice set
	DeferredReaps uint64 // blocks whose finished voices were left for later
	Reaped        uint64
}

type Pool struct {
	channels   int
	sampleRate int
	release    time.Duration
	maxBlock   int

	relFrames int64

	mtx    sync.Mutex
	voices [MaxNote + 1]*Voice

	// Owned by the Tick caller.
	snap []*Voice
	out  []float32

	ticks         atomic.Uint64
	staleTicks    atomic.Uint64
	deferredReaps atomic.Uint64
	reaped        atomic.Uint64
}

func NewPool(channels, sampleRate int, opts ...Option) *Pool {
	p := &Pool{
		channels:   channels,
		sampleRate: sampleRate,
		release:    DefaultReleaseDuration,
		maxBlock:   DefaultMaxBlock,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.relFrames = int64(math.Round(p.release.Seconds() * float64(sampleRate)))
	p.snap = make([]*Voice, 0, MaxNote+1)
	p.out = make([]float32, p.maxBlock*channels)

	return p
}

func (p *Pool) Channels() int   { return p.channels }
func (p *Pool) SampleRate() int { return p.sampleRate }

// ReleaseFrames is the full NoteOff fade length in frames.
func (p *Pool) ReleaseFrames() int { return int(p.relFrames) }

// NoteOn starts buf on note, replacing any voice already there without a
// fade. gain scales the voice output.
func (p *Pool) NoteOn(note uint8, buf *audio.Buffer, gain float32) error {
	if note > MaxNote {
		return fmt.Errorf("%w: %d", ErrInvalidNote, note)
	}
	if buf == nil {
		return ErrNoBuffer
	}
	if buf.Channels != p.channels {
		return fmt.Errorf("%w: got %d, want %d", ErrChannelMismatch, buf.Channels, p.channels)
	}

	v := newVoice(note, buf, gain, p.relFrames)

	p.mtx.Lock()
	p.voices[note] = v
	p.mtx.Unlock()

	return nil
}

// NoteOff starts the release fade of the Active voice on note. It reports
// false, and changes nothing, when there is no such voice.
func (p *Pool) NoteOff(note uint8) bool {
	if note > MaxNote {
		return false
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	if v := p.voices[note]; v != nil {
		return v.release()
	}
	return false
}

// ReleaseAll fades out every Active voice and returns how many it touched.
func (p *Pool) ReleaseAll() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	n := 0
	for _, v := range p.voices {
		if v != nil && v.release() {
			n++
		}
	}
	return n
}

// Len returns the number of voices in the pool, finished ones not yet
// reaped included.
func (p *Pool) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	n := 0
	for _, v := range p.voices {
		if v != nil {
			n++
		}
	}
	return n
}

// Voice returns the voice on note for inspection.
func (p *Pool) Voice(note uint8) (*Voice, bool) {
	if note > MaxNote {
		return nil, false
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	v := p.voices[note]
	return v, v != nil
}

// Notes lists the notes that currently hold a voice, in ascending order.
func (p *Pool) Notes() []uint8 {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	var notes []uint8
	for n, v := range p.voices {
		if v != nil {
			notes = append(notes, uint8(n))
		}
	}
	return notes
}

func (p *Pool) Stats() Stats {
	return Stats{
		Ticks:         p.ticks.Load(),
		StaleTicks:    p.staleTicks.Load(),
		DeferredReaps: p.deferredReaps.Load(),
		Reaped:        p.reaped.Load(),
	}
}

// Tick mixes the next frames frames of every voice into an interleaved
// block and removes voices that finished. The returned slice is reused by
// the next call.
//
// Tick must be called from one goroutine at a time. It does not allocate
// once the block size fits the pre-sized buffer.
func (p *Pool) Tick(frames int) []float32 {
	p.ticks.Add(1)

	n := frames * p.channels
	if cap(p.out) < n {
		p.out = make([]float32, n)
	}
	out := p.out[:n]
	clear(out)

	if p.mtx.TryLock() {
		p.snap = p.snap[:0]
		for _, v := range p.voices {
			if v != nil {
				p.snap = append(p.snap, v)
			}
		}
		p.mtx.Unlock()
	} else {
		p.staleTicks.Add(1)
	}

	finished := false
	for _, v := range p.snap {
		v.mix(out, frames)
		if v.State() == Finished {
			finished = true
		}
	}

	if finished {
		p.reap()
	}

	return out
}

func (p *Pool) reap() {
	if !p.mtx.TryLock() {
		p.deferredReaps.Add(1)
		return
	}
	defer p.mtx.Unlock()

	for i, v := range p.voices {
		if v != nil && v.State() == Finished {
			p.voices[i] = nil
			p.reaped.Add(1)
		}
	}

	p.snap = slices.DeleteFunc(p.snap, func(v *Voice) bool {
		return v.State() == Finished
	})
}
