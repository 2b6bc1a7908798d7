// SPDX-License-Identifier: EPL-2.0

// Package engine renders the voice pool into fixed-size blocks and feeds
// them to an output device.
//
// The device pulls audio through Engine.Read, which is the only real-time
// path. It does not log, block on the control path or allocate once warm.
// Overruns and recovered panics are reported through counters and a small
// event channel that a monitor goroutine drains into the logger.
package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audsampler/effects"
	"github.com/ik5/audsampler/utils"
	"github.com/ik5/audsampler/voice"
)

const (
	eventQueue   = 64
	pollInterval = 100 * time.Millisecond
)

type EventKind int

const (
	// Overload marks a block that took longer to render than it lasts.
	Overload EventKind = iota
	// Panic marks a block replaced by silence after a recovered panic.
	Panic
)

// Event is a real-time incident reported off the audio path.
type Event struct {
	Kind   EventKind
	Block  uint64
	Took   time.Duration
	Budget time.Duration
	Value  any // recovered panic value
}

type Stats struct {
	Blocks    uint64
	Overloads uint64
	Panics    uint64
	Limited   uint64 // blocks scaled down by the limiter
	Dropped   uint64 // events lost because the monitor fell behind
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEffects attaches chain at construction time.
func WithEffects(chain *effects.Chain) Option {
	return func(e *Engine) { e.fx = chain }
}

type Engine struct {
	cfg     Config
	pool    *voice.Pool
	driver  Driver
	logger  *slog.Logger
	fx      *effects.Chain
	limiter *effects.Limiter
	budget  time.Duration
	now     func() time.Time

	effects atomic.Pointer[effects.Chain]

	// renderMtx is held for the whole of every device pull. Stop takes it
	// to wait out the block in flight.
	renderMtx sync.Mutex
	silence   []float32
	encoded   []byte
	pending   []byte
	stopped   bool

	// ctlMtx serializes Start and Stop.
	ctlMtx  sync.Mutex
	started bool
	closed  bool
	stream  Stream
	done    chan struct{}
	wg      sync.WaitGroup

	events   chan Event
	blocks   atomic.Uint64
	overload atomic.Uint64
	panics   atomic.Uint64
	limited  atomic.Uint64
	dropped  atomic.Uint64
	err      atomic.Pointer[error]
}

// New builds an engine rendering pool. The pool must match cfg's channel
// count and sample rate.
func New(cfg Config, pool *voice.Pool, driver Driver, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pool.Channels() != cfg.Channels || pool.SampleRate() != cfg.SampleRate {
		return nil, fmt.Errorf("%w: pool is %dch@%d, engine %dch@%d", ErrInvalidConfig,
			pool.Channels(), pool.SampleRate(), cfg.Channels, cfg.SampleRate)
	}

	e := &Engine{
		cfg:     cfg,
		pool:    pool,
		driver:  driver,
		logger:  slog.Default(),
		limiter: effects.NewLimiter(cfg.LimitThreshold),
		budget:  cfg.BlockDuration(),
		now:     time.Now,
		silence: make([]float32, cfg.BlockSize*cfg.Channels),
		encoded: make([]byte, cfg.BlockBytes()),
		events:  make(chan Event, eventQueue),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.fx != nil {
		e.SetEffects(e.fx)
		e.fx = nil
	}

	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// SetEffects attaches chain, or detaches the current one when chain is
// nil. The swap takes effect on the next block. Attaching the chain that
// is already attached does nothing. A new chain is prepared before it is
// published, so it must not be shared with another running engine.
func (e *Engine) SetEffects(chain *effects.Chain) {
	if chain == e.effects.Load() {
		return
	}
	if chain != nil {
		chain.Prepare(e.cfg.Channels, e.cfg.SampleRate)
	}
	e.effects.Store(chain)
}

// Effects returns the attached chain, if any.
func (e *Engine) Effects() *effects.Chain {
	return e.effects.Load()
}

// RenderBlock renders one block of BlockSize frames. The slice is reused
// by the next call. RenderBlock must not be called while a device is
// pulling from the engine.
func (e *Engine) RenderBlock() []float32 {
	e.renderMtx.Lock()
	defer e.renderMtx.Unlock()

	return e.render()
}

func (e *Engine) render() (block []float32) {
	n := e.blocks.Add(1)
	start := e.now()

	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			block = e.silence
			e.report(Event{Kind: Panic, Block: n, Value: r})
		}
	}()

	block = e.pool.Tick(e.cfg.BlockSize)
	if chain := e.effects.Load(); chain != nil {
		chain.Process(block, e.cfg.Channels, e.cfg.SampleRate)
	}
	if e.limiter.Limit(block) {
		e.limited.Add(1)
	}

	if took := e.now().Sub(start); took > e.budget {
		e.overload.Add(1)
		e.report(Event{Kind: Overload, Block: n, Took: took, Budget: e.budget})
	}

	return block
}

// report never blocks; events are dropped when the monitor lags.
func (e *Engine) report(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

func (e *Engine) encode(dst []byte, block []float32) {
	switch e.cfg.Format {
	case FormatInt16LE:
		for i, v := range block {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(utils.Float32ToInt16(v)))
		}
	default:
		for i, v := range block {
			binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
		}
	}
}

// Read implements io.Reader for the device. It fills p completely,
// rendering as many blocks as needed, and returns io.EOF once the engine
// is stopped.
func (e *Engine) Read(p []byte) (int, error) {
	e.renderMtx.Lock()
	defer e.renderMtx.Unlock()

	if e.stopped {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) {
		if len(e.pending) == 0 {
			e.encode(e.encoded, e.render())
			e.pending = e.encoded
		}
		c := copy(p[n:], e.pending)
		e.pending = e.pending[c:]
		n += c
	}

	return n, nil
}

// Start opens the device and begins playback. A failure to open or start
// the stream is returned wrapped in ErrDevice and leaves nothing open. The
// engine stops on its own when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.ctlMtx.Lock()
	defer e.ctlMtx.Unlock()

	if e.closed {
		return ErrStopped
	}
	if e.started {
		return nil
	}

	stream, err := e.driver.Open(e.cfg.stream(), e)
	if err != nil {
		return fmt.Errorf("%w: open: %w", ErrDevice, err)
	}
	if err := stream.Play(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("%w: play: %w", ErrDevice, err)
	}

	e.stream = stream
	e.started = true
	e.done = make(chan struct{})

	e.wg.Add(1)
	go e.monitor(ctx, stream)

	e.logger.Info("audio engine started",
		slog.Int("sample_rate", e.cfg.SampleRate),
		slog.Int("channels", e.cfg.Channels),
		slog.Int("block_size", e.cfg.BlockSize),
		slog.String("format", e.cfg.Format.String()),
		slog.Duration("block_budget", e.budget),
	)

	return nil
}

// Stop waits for the block being rendered, closes the stream and stops the
// monitor. Calling it again, or before Start, returns nil.
func (e *Engine) Stop() error {
	e.ctlMtx.Lock()
	defer e.ctlMtx.Unlock()

	return e.stop()
}

func (e *Engine) stop() error {
	if e.closed {
		return nil
	}
	e.closed = true

	e.renderMtx.Lock()
	e.stopped = true
	e.renderMtx.Unlock()

	if !e.started {
		return nil
	}

	close(e.done)
	e.wg.Wait()

	if err := e.stream.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrDevice, err)
	}

	s := e.Stats()
	e.logger.Info("audio engine stopped",
		slog.Uint64("blocks", s.Blocks),
		slog.Uint64("overloads", s.Overloads),
		slog.Uint64("panics", s.Panics),
	)

	return nil
}

// Err returns the device error that stopped the engine, if any.
func (e *Engine) Err() error {
	if p := e.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (e *Engine) Stats() Stats {
	return Stats{
		Blocks:    e.blocks.Load(),
		Overloads: e.overload.Load(),
		Panics:    e.panics.Load(),
		Limited:   e.limited.Load(),
		Dropped:   e.dropped.Load(),
	}
}

// Events exposes the incident stream for callers that run without a
// monitor, such as offline rendering.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// monitor logs real-time incidents, polls the stream for asynchronous
// errors and stops the engine when ctx ends.
func (e *Engine) monitor(ctx context.Context, stream Stream) {
	defer e.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			e.drainEvents()
			return

		case <-ctx.Done():
			// Stop waits on this goroutine, so it has to run elsewhere.
			go func() { _ = e.Stop() }()
			<-e.done
			e.drainEvents()
			return

		case ev := <-e.events:
			e.logEvent(ev)

		case <-ticker.C:
			if err := stream.Err(); err != nil {
				e.fail(err)
				go func() { _ = e.Stop() }()
				<-e.done
				return
			}
		}
	}
}

func (e *Engine) fail(err error) {
	wrapped := fmt.Errorf("%w: %w", ErrDevice, err)
	if e.err.CompareAndSwap(nil, &wrapped) {
		e.logger.Error("audio device failed", slog.Any("error", err))
	}
}

func (e *Engine) drainEvents() {
	for {
		select {
		case ev := <-e.events:
			e.logEvent(ev)
		default:
			return
		}
	}
}

func (e *Engine) logEvent(ev Event) {
	switch ev.Kind {
	case Overload:
		e.logger.Warn("audio overload",
			slog.Uint64("block", ev.Block),
			slog.Duration("took", ev.Took),
			slog.Duration("budget", ev.Budget),
		)
	case Panic:
		e.logger.Error("render panic, block replaced by silence",
			slog.Uint64("block", ev.Block),
			slog.Any("panic", ev.Value),
		)
	}
}
