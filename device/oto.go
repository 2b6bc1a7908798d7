// SPDX-License-Identifier: EPL-2.0

//go:build !headless

package device

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/audsampler/engine"
)

// oto allows a single context per process, so it is opened once and
// shared by every stream with the same format.
var (
	otoMtx    sync.Mutex
	otoCtx    *oto.Context
	otoFormat engine.StreamConfig
)

// Oto plays through the system sound card.
type Oto struct{}

// Default returns the sound card driver.
func Default() engine.Driver { return Oto{} }

func otoSampleFormat(f engine.Format) oto.Format {
	if f == engine.FormatInt16LE {
		return oto.FormatSignedInt16LE
	}
	return oto.FormatFloat32LE
}

func openContext(cfg engine.StreamConfig) (*oto.Context, error) {
	otoMtx.Lock()
	defer otoMtx.Unlock()

	want := cfg
	want.BlockSize = 0

	if otoCtx != nil {
		if want != otoFormat {
			return nil, fmt.Errorf("%w: have %dch@%d %v, want %dch@%d %v", ErrContextMismatch,
				otoFormat.Channels, otoFormat.SampleRate, otoFormat.Format,
				cfg.Channels, cfg.SampleRate, cfg.Format)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       otoSampleFormat(cfg.Format),
		BufferSize:   cfg.BlockDuration(),
	})
	if err != nil {
		return nil, err
	}
	<-ready

	otoCtx, otoFormat = ctx, want

	return ctx, nil
}

func (Oto) Open(cfg engine.StreamConfig, r io.Reader) (engine.Stream, error) {
	ctx, err := openContext(cfg)
	if err != nil {
		return nil, err
	}

	p := ctx.NewPlayer(r)
	p.SetBufferSize(cfg.BlockSize * cfg.Channels * cfg.Format.BytesPerSample())

	return &otoStream{ctx: ctx, player: p}, nil
}

type otoStream struct {
	ctx    *oto.Context
	player *oto.Player

	mtx    sync.Mutex
	closed bool
}

func (s *otoStream) Play() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.player.Play()

	return s.player.Err()
}

func (s *otoStream) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.player.Pause()

	return s.player.Close()
}

func (s *otoStream) Err() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return s.player.Err()
}
