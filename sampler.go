// SPDX-License-Identifier: EPL-2.0

package audsampler

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/audsampler/audio"
	"github.com/ik5/audsampler/bank"
	"github.com/ik5/audsampler/effects"
	"github.com/ik5/audsampler/engine"
	"github.com/ik5/audsampler/formats/wav"
	"github.com/ik5/audsampler/router"
	"github.com/ik5/audsampler/voice"
)

const errPoll = 100 * time.Millisecond

type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry *audio.Registry
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry replaces DefaultRegistry for sample loading.
func WithRegistry(reg *audio.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// Stats gathers the counters of every stage.
type Stats struct {
	Engine engine.Stats
	Pool   voice.Stats
	Router router.Stats
}

// Sampler wires a bank, a voice pool, an effect board, an engine and a
// router together.
type Sampler struct {
	cfg    Config
	logger *slog.Logger

	bank   *bank.Bank
	pool   *voice.Pool
	chain  *effects.Chain
	engine *engine.Engine
	router *router.Router

	mtx     sync.Mutex
	playing bool
}

// New builds a sampler that plays through driver. The sample in
// cfg.SamplePath is loaded before New returns.
func New(cfg Config, driver engine.Driver, opts ...Option) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}

	ec := cfg.Engine
	s := &Sampler{
		cfg:    cfg,
		logger: o.logger,
		bank:   bank.New(o.registry, ec.SampleRate, ec.Channels),
		pool: voice.NewPool(ec.Channels, ec.SampleRate,
			voice.WithReleaseDuration(cfg.ReleaseDuration),
			voice.WithMaxBlock(ec.BlockSize),
		),
		chain: cfg.chain(),
	}

	if cfg.SamplePath != "" {
		if err := s.bank.Load(cfg.SamplePath); err != nil {
			return nil, err
		}
	} else if err := s.bank.Set(DefaultTone(ec.Channels, ec.SampleRate), "default tone"); err != nil {
		return nil, err
	}

	var err error
	s.engine, err = engine.New(ec, s.pool, driver,
		engine.WithLogger(o.logger),
		engine.WithEffects(s.chain),
	)
	if err != nil {
		return nil, err
	}

	s.router, err = router.New(s.bank, s.pool,
		router.WithLogger(o.logger),
		router.WithBaseNote(cfg.BaseNote),
		router.WithQueueDepth(cfg.QueueDepth),
		router.WithShiftCache(cfg.ShiftCache),
		router.WithVelocitySensitive(cfg.VelocitySensitive),
		router.WithStopOnSampleChange(cfg.StopOnSampleChange),
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Sampler) Config() Config          { return s.cfg }
func (s *Sampler) Bank() *bank.Bank        { return s.bank }
func (s *Sampler) Pool() *voice.Pool       { return s.pool }
func (s *Sampler) Effects() *effects.Chain { return s.chain }
func (s *Sampler) Engine() *engine.Engine  { return s.engine }
func (s *Sampler) Router() *router.Router  { return s.router }

// Run plays until ctx is done or the device fails, applying submitted
// events as they arrive. The engine is stopped before Run returns, so a
// Sampler plays live once. Render still works afterwards.
func (s *Sampler) Run(ctx context.Context) error {
	s.mtx.Lock()
	if s.playing {
		s.mtx.Unlock()
		return ErrRunning
	}
	s.playing = true
	s.mtx.Unlock()

	defer func() {
		s.mtx.Lock()
		s.playing = false
		s.mtx.Unlock()
	}()

	g, ctx := errgroup.WithContext(ctx)
	if err := s.engine.Start(ctx); err != nil {
		return err
	}

	snap := s.bank.Snapshot()
	s.logger.Info("sampler running",
		slog.String("sample", snap.Path),
		slog.Duration("sample_duration", snap.Buffer.Duration()),
		slog.Int("base_note", s.cfg.BaseNote),
		slog.Any("effects", s.chain.Names()),
	)

	g.Go(func() error { return s.router.Run(ctx) })
	g.Go(func() error { return s.watch(ctx) })

	err := g.Wait()
	if stopErr := s.engine.Stop(); err == nil {
		err = stopErr
	}

	return err
}

// watch ends the group when the engine reports a device failure.
func (s *Sampler) watch(ctx context.Context) error {
	ticker := time.NewTicker(errPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.engine.Err(); err != nil {
				return err
			}
		}
	}
}

// Submit queues ev for the running sampler.
func (s *Sampler) Submit(ev router.Event) error {
	return s.router.Submit(ev)
}

// Exec runs one parsed text command. Note and sample events are queued;
// effect edits apply immediately and return a short reply.
func (s *Sampler) Exec(cmd router.Command) (string, error) {
	for _, ev := range cmd.Events() {
		if err := s.Submit(ev); err != nil {
			return "", err
		}
	}
	if cmd.Effect == nil {
		return "", nil
	}

	op := cmd.Effect
	switch op.Op {
	case "add":
		fx, err := effects.New(op.Name)
		if err != nil {
			return "", err
		}
		s.chain.Append(fx)
	case "rm":
		if err := s.chain.Remove(op.Index); err != nil {
			return "", err
		}
	case "clear":
		s.chain.Clear()
	case "list":
	default:
		return "", fmt.Errorf("%w: fx %s", router.ErrProtocol, op.Op)
	}

	return s.describeEffects(), nil
}

func (s *Sampler) describeEffects() string {
	names := s.chain.Names()
	if len(names) == 0 {
		return "effects: none"
	}

	var sb strings.Builder
	sb.WriteString("effects:")
	for i, name := range names {
		sb.WriteString(" ")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(":")
		sb.WriteString(name)
	}
	return sb.String()
}

func (s *Sampler) Stats() Stats {
	return Stats{
		Engine: s.engine.Stats(),
		Pool:   s.pool.Stats(),
		Router: s.router.Stats(),
	}
}

// Cue is an event scheduled for offline rendering.
type Cue struct {
	At    time.Duration
	Event router.Event
}

// Render plays score into a 16-bit PCM WAV of the given length without a
// device. Cues apply at the start of the block that contains them. Render
// fails with ErrRunning while Run is active.
func (s *Sampler) Render(w io.Writer, score []Cue, length time.Duration) error {
	s.mtx.Lock()
	if s.playing {
		s.mtx.Unlock()
		return ErrRunning
	}
	s.playing = true
	s.mtx.Unlock()

	defer func() {
		s.mtx.Lock()
		s.playing = false
		s.mtx.Unlock()
	}()

	ec := s.cfg.Engine
	cues := slices.Clone(score)
	slices.SortStableFunc(cues, func(a, b Cue) int { return cmp.Compare(a.At, b.At) })

	total := int(length.Seconds() * float64(ec.SampleRate))
	out := make([]float32, 0, total*ec.Channels)

	for frame := 0; frame < total; frame += ec.BlockSize {
		now := time.Duration(frame) * time.Second / time.Duration(ec.SampleRate)
		for len(cues) > 0 && cues[0].At <= now {
			if err := s.router.Handle(cues[0].Event); err != nil {
				return fmt.Errorf("cue at %v: %w", cues[0].At, err)
			}
			cues = cues[1:]
		}

		block := s.engine.RenderBlock()
		n := min(ec.BlockSize, total-frame) * ec.Channels
		out = append(out, block[:n]...)
	}

	s.logger.Debug("rendered",
		slog.Duration("length", length),
		slog.Int("frames", total),
		slog.Uint64("overloads", s.engine.Stats().Overloads),
	)

	return wav.WriteBuffer(w, &audio.Buffer{
		Channels:   ec.Channels,
		SampleRate: ec.SampleRate,
		Data:       out,
	})
}
