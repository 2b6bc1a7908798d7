// SPDX-License-Identifier: EPL-2.0

package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ik5/audsampler/audio"
	"github.com/ik5/audsampler/bank"
	"github.com/ik5/audsampler/pitch"
	"github.com/ik5/audsampler/voice"
)

const (
	DefaultQueueDepth = 256
	// DefaultShiftCache holds one shifted buffer per MIDI note.
	DefaultShiftCache = MaxNote + 1
)

type Option func(*Router)

func WithBaseNote(note int) Option {
	return func(r *Router) { r.baseNote = note }
}

func WithQueueDepth(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.depth = n
		}
	}
}

// WithVelocitySensitive scales voice gain by velocity/127. Otherwise every
// voice plays at full gain.
func WithVelocitySensitive(on bool) Option {
	return func(r *Router) { r.velocity = on }
}

// WithStopOnSampleChange releases every sounding voice after a successful
// sample change. It is on by default.
func WithStopOnSampleChange(on bool) Option {
	return func(r *Router) { r.stopOnChange = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithShiftCache sets how many shifted buffers are kept. Zero disables
// caching.
func WithShiftCache(size int) Option {
	return func(r *Router) { r.cacheSize = size }
}

type Stats struct {
	Handled   uint64
	Failed    uint64
	Dropped   uint64 // NoteOns dropped to make room in the queue
	Coalesced uint64 // SampleChanges superseded before they ran
}

// Router applies note events to a bank and a voice pool.
type Router struct {
	bank   *bank.Bank
	pool   *voice.Pool
	cache  *pitch.Cache
	logger *slog.Logger

	baseNote     int
	depth        int
	velocity     bool
	stopOnChange bool
	cacheSize    int

	mtx    sync.Mutex
	queue  []Event
	signal chan struct{}

	handled   atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	coalesced atomic.Uint64
}

func New(b *bank.Bank, p *voice.Pool, opts ...Option) (*Router, error) {
	r := &Router{
		bank:         b,
		pool:         p,
		logger:       slog.Default(),
		baseNote:     pitch.DefaultBaseNote,
		depth:        DefaultQueueDepth,
		stopOnChange: true,
		cacheSize:    DefaultShiftCache,
		signal:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.cacheSize > 0 {
		c, err := pitch.NewCache(r.cacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = c
	}
	r.queue = make([]Event, 0, r.depth)

	return r, nil
}

// Cache returns the shift cache, or nil when caching is off.
func (r *Router) Cache() *pitch.Cache { return r.cache }

// Handle applies ev now. Failures are logged and returned; an invalid event
// never touches the pool.
func (r *Router) Handle(ev Event) error {
	err := r.handle(ev)
	if err != nil {
		r.failed.Add(1)
		r.logFailure(ev, err)
		return err
	}
	r.handled.Add(1)

	return nil
}

func (r *Router) handle(ev Event) error {
	if err := validate(ev); err != nil {
		return err
	}

	switch ev := ev.(type) {
	case NoteOn:
		if ev.Velocity == 0 {
			r.pool.NoteOff(ev.Note)
			return nil
		}
		return r.noteOn(ev)

	case NoteOff:
		r.pool.NoteOff(ev.Note)
		return nil

	case SampleChange:
		if err := r.bank.Load(ev.Path); err != nil {
			return err
		}
		released := 0
		if r.stopOnChange {
			released = r.pool.ReleaseAll()
		}
		s := r.bank.Snapshot()
		r.logger.Info("sample changed",
			slog.String("path", s.Path),
			slog.Uint64("generation", s.Generation),
			slog.Duration("duration", s.Buffer.Duration()),
			slog.Int("released", released),
		)
	}

	return nil
}

func (r *Router) noteOn(ev NoteOn) error {
	s := r.bank.Snapshot()
	if s.Buffer == nil {
		return ErrNoSample
	}

	st := pitch.Semitones(int(ev.Note), r.baseNote)

	var buf *audio.Buffer
	if r.cache != nil {
		buf = r.cache.Shift(s.Buffer, s.Generation, st)
	} else {
		buf = pitch.Shift(s.Buffer, st)
	}

	gain := float32(1)
	if r.velocity {
		gain = float32(ev.Velocity) / MaxNote
	}

	return r.pool.NoteOn(ev.Note, buf, gain)
}

func (r *Router) logFailure(ev Event, err error) {
	attrs := []any{slog.Any("error", err)}
	if ev != nil {
		attrs = append(attrs, slog.String("event", ev.String()))
	}

	switch {
	case errors.Is(err, ErrProtocol):
		r.logger.Warn("event dropped", attrs...)
	case errors.Is(err, bank.ErrSampleLoad):
		r.logger.Warn("sample change failed, keeping current sample", attrs...)
	default:
		r.logger.Error("event failed", attrs...)
	}
}

// Submit queues ev for Run. It is safe from any goroutine and never
// blocks. A SampleChange replaces any SampleChange still queued. When the
// queue is full the oldest NoteOn that a later queued NoteOff cancels is
// dropped; if there is none, Submit returns ErrQueueFull.
func (r *Router) Submit(ev Event) error {
	if err := validate(ev); err != nil {
		r.failed.Add(1)
		r.logFailure(ev, err)
		return err
	}

	r.mtx.Lock()
	if _, ok := ev.(SampleChange); ok {
		r.queue = slices.DeleteFunc(r.queue, func(q Event) bool {
			_, pending := q.(SampleChange)
			if pending {
				r.coalesced.Add(1)
			}
			return pending
		})
	}
	if len(r.queue) >= r.depth && !r.dropCancelled() {
		r.mtx.Unlock()
		return fmt.Errorf("%w: %d pending, dropping %v", ErrQueueFull, r.depth, ev)
	}
	r.queue = append(r.queue, ev)
	r.mtx.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}

	return nil
}

// dropCancelled removes the oldest queued NoteOn whose note is released by
// a later queued event. Callers hold mtx.
func (r *Router) dropCancelled() bool {
	for i, q := range r.queue {
		on, ok := q.(NoteOn)
		if !ok || on.Velocity == 0 {
			continue
		}
		for _, later := range r.queue[i+1:] {
			if releases(later, on.Note) {
				r.queue = slices.Delete(r.queue, i, i+1)
				r.dropped.Add(1)
				return true
			}
		}
	}
	return false
}

func releases(ev Event, note uint8) bool {
	switch ev := ev.(type) {
	case NoteOff:
		return ev.Note == note
	case NoteOn:
		return ev.Note == note && ev.Velocity == 0
	}
	return false
}

// Pending returns the number of queued events.
func (r *Router) Pending() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return len(r.queue)
}

func (r *Router) next() (Event, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if len(r.queue) == 0 {
		return nil, false
	}
	ev := r.queue[0]
	r.queue = slices.Delete(r.queue, 0, 1)

	return ev, true
}

// Run applies queued events in arrival order until ctx is done. It sleeps
// while the queue is empty. Event failures are logged, not returned.
func (r *Router) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		ev, ok := r.next()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-r.signal:
			}
			continue
		}

		_ = r.Handle(ev)
	}
}

func (r *Router) Stats() Stats {
	return Stats{
		Handled:   r.handled.Load(),
		Failed:    r.failed.Load(),
		Dropped:   r.dropped.Load(),
		Coalesced: r.coalesced.Load(),
	}
}
