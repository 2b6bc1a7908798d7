// SPDX-License-Identifier: EPL-2.0

package device

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audsampler/engine"
)

// Null pulls one block from the engine per block duration and discards it.
type Null struct{}

func (Null) Open(cfg engine.StreamConfig, r io.Reader) (engine.Stream, error) {
	return &nullStream{
		r:      r,
		period: cfg.BlockDuration(),
		buf:    make([]byte, cfg.BlockSize*cfg.Channels*cfg.Format.BytesPerSample()),
		done:   make(chan struct{}),
	}, nil
}

type nullStream struct {
	r      io.Reader
	period time.Duration
	buf    []byte

	mtx     sync.Mutex
	playing bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup

	reads atomic.Uint64
	err   atomic.Pointer[error]
}

func (s *nullStream) Play() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.playing {
		return nil
	}
	s.playing = true

	s.wg.Go(s.loop)

	return nil
}

func (s *nullStream) loop() {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := io.ReadFull(s.r, s.buf); err != nil {
				if !errors.Is(err, io.EOF) {
					s.err.CompareAndSwap(nil, &err)
				}
				return
			}
			s.reads.Add(1)
		}
	}
}

func (s *nullStream) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	s.wg.Wait()

	return nil
}

func (s *nullStream) Err() error {
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}
