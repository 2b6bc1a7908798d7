// SPDX-License-Identifier: EPL-2.0

package voice_test

import (
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ik5/audsampler/audio"
	"github.com/ik5/audsampler/internal/audiotest"
	"github.com/ik5/audsampler/voice"
)

const rate = 1000 // 1 frame per millisecond keeps the arithmetic readable

func constBuf(frames int, v float32) *audio.Buffer {
	return &audio.Buffer{Channels: 1, SampleRate: rate, Data: audiotest.Const(frames, v)}
}

func TestNoteOn_Retrigger(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(1, rate)
	if err := p.NoteOn(60, constBuf(1000, 0.5), 1); err != nil {
		t.Fatal(err)
	}
	p.Tick(100)
	first, _ := p.Voice(60)

	if err := p.NoteOn(60, constBuf(1000, 0.5), 1); err != nil {
		t.Fatal(err)
	}
	second, ok := p.Voice(60)

	if !ok || second == first {
		t.Fatal("second NoteOn did not replace the voice")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
	if second.Cursor() != 0 || second.State() != voice.Active {
		t.Errorf("new voice cursor %d state %v, want 0 active", second.Cursor(), second.State())
	}
}

func TestNoteOn_Invalid(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(2, rate)
	stereo := &audio.Buffer{Channels: 2, SampleRate: rate, Data: make([]float32, 20)}

	tests := []struct {
		name string
		note uint8
		buf  *audio.Buffer
		want error
	}{
		{"note 128", 128, stereo, voice.ErrInvalidNote},
		{"note 255", 255, stereo, voice.ErrInvalidNote},
		{"mono into stereo pool", 60, constBuf(10, 1), voice.ErrChannelMismatch},
		{"nil buffer", 60, nil, voice.ErrNoBuffer},
	}

	for _, tt := range tests {
		if err := p.NoteOn(tt.note, tt.buf, 1); !errors.Is(err, tt.want) {
			t.Errorf("%s: NoteOn() error = %v, want %v", tt.name, err, tt.want)
		}
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d after rejected NoteOns", p.Len())
	}
}

func TestNoteOff_NoVoice(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(1, rate)
	_ = p.NoteOn(60, constBuf(100, 1), 1)

	for _, note := range []uint8{61, 0, 127, 200} {
		if p.NoteOff(note) {
			t.Errorf("NoteOff(%d) = true with no voice", note)
		}
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}

	// A second NoteOff finds the voice already releasing.
	if !p.NoteOff(60) || p.NoteOff(60) {
		t.Error("NoteOff() should succeed once")
	}
}

func TestRelease_RemovedAfterFade(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(1, rate, voice.WithReleaseDuration(500*time.Millisecond))
	_ = p.NoteOn(64, constBuf(5000, 0.5), 1)
	p.Tick(100)

	if !p.NoteOff(64) {
		t.Fatal("NoteOff() = false")
	}
	v, _ := p.Voice(64)
	if v.State() != voice.Releasing {
		t.Fatalf("state = %v, want releasing", v.State())
	}

	for i := range 4 {
		p.Tick(100)
		if p.Len() != 1 {
			t.Fatalf("voice removed after %d frames of release", (i+1)*100)
		}
	}
	if done, total := v.ReleaseProgress(); done != 400 || total != 500 {
		t.Errorf("ReleaseProgress() = %d/%d, want 400/500", done, total)
	}

	p.Tick(100)
	if p.Len() != 0 {
		t.Errorf("Len() = %d after the full release, want 0", p.Len())
	}
	if v.State() != voice.Finished {
		t.Errorf("state = %v, want finished", v.State())
	}
}

func TestRelease_ShortWhenBufferEnds(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(1, rate)
	_ = p.NoteOn(60, constBuf(300, 1), 1)
	p.Tick(200)
	p.NoteOff(60)

	p.Tick(100)
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", p.Len())
	}
}

func TestRelease_LinearFade(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(1, rate, voice.WithReleaseDuration(4*time.Millisecond))
	_ = p.NoteOn(60, constBuf(100, 1), 1)
	p.NoteOff(60)

	got := slices.Clone(p.Tick(6))
	want := []float32{1, 2.0 / 3, 1.0 / 3, 0, 0, 0}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("Tick() = %v, want %v", got, want)
		}
	}
}

func TestTick_Exhaustion(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(1, rate)
	_ = p.NoteOn(60, constBuf(150, 0.25), 1)

	out := p.Tick(100)
	if out[99] != 0.25 {
		t.Errorf("out[99] = %v, want 0.25", out[99])
	}
	v, _ := p.Voice(60)

	out = p.Tick(100)
	if out[49] != 0.25 || out[50] != 0 || out[99] != 0 {
		t.Errorf("tail not zero padded: %v %v %v", out[49], out[50], out[99])
	}
	if v.Cursor() != 150 {
		t.Errorf("Cursor() = %d, want 150", v.Cursor())
	}
	if p.Len() != 0 || v.State() != voice.Finished {
		t.Errorf("exhausted voice not reaped: len %d state %v", p.Len(), v.State())
	}
}

func TestTick_MixAndGain(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(2, rate)
	left := &audio.Buffer{Channels: 2, SampleRate: rate, Data: []float32{0.5, 0, 0.5, 0}}
	right := &audio.Buffer{Channels: 2, SampleRate: rate, Data: []float32{0, 0.5, 0, 0.5}}
	_ = p.NoteOn(60, left, 1)
	_ = p.NoteOn(67, right, 0.5)

	got := p.Tick(2)
	if want := []float32{0.5, 0.25, 0.5, 0.25}; !slices.Equal(got, want) {
		t.Errorf("Tick() = %v, want %v", got, want)
	}
	if !slices.Equal(p.Notes(), nil) {
		t.Errorf("Notes() = %v after both voices ended", p.Notes())
	}
}

func TestReleaseAll(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(1, rate)
	for _, n := range []uint8{60, 64, 67} {
		_ = p.NoteOn(n, constBuf(1000, 0.1), 1)
	}
	p.NoteOff(64)

	if got := p.ReleaseAll(); got != 2 {
		t.Errorf("ReleaseAll() = %d, want 2", got)
	}
	if want := []uint8{60, 64, 67}; !slices.Equal(p.Notes(), want) {
		t.Errorf("Notes() = %v, want %v", p.Notes(), want)
	}
	for _, n := range p.Notes() {
		if v, _ := p.Voice(n); v.State() != voice.Releasing {
			t.Errorf("note %d state = %v, want releasing", n, v.State())
		}
	}
}

func TestTick_NoAllocs(t *testing.T) {
	p := voice.NewPool(2, 44100, voice.WithMaxBlock(512))
	buf := &audio.Buffer{Channels: 2, SampleRate: 44100, Data: make([]float32, 2*44100*60)}
	for n := range uint8(32) {
		_ = p.NoteOn(40+n, buf, 0.5)
	}
	p.Tick(512)

	allocs := testing.AllocsPerRun(100, func() {
		p.Tick(512)
	})
	if allocs != 0 {
		t.Errorf("Tick() allocs = %v, want 0", allocs)
	}
}

// Control goroutines hammer the pool while the mixer runs.
func TestPool_Concurrent(t *testing.T) {
	t.Parallel()

	p := voice.NewPool(1, 44100, voice.WithReleaseDuration(time.Millisecond))
	buf := &audio.Buffer{Channels: 1, SampleRate: 44100, Data: audiotest.Const(2000, 0.01)}

	done := make(chan struct{})
	var mixer sync.WaitGroup
	mixer.Go(func() {
		for {
			select {
			case <-done:
				return
			default:
				p.Tick(64)
			}
		}
	})

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Go(func() {
			for i := range 500 {
				note := uint8((g*31 + i) % 8)
				if i%3 == 0 {
					p.NoteOff(note)
				} else if err := p.NoteOn(note, buf, 1); err != nil {
					t.Error(err)
					return
				}
			}
		})
	}
	wg.Wait()
	close(done)
	mixer.Wait()

	if n := p.Len(); n > 8 {
		t.Errorf("Len() = %d, want at most one voice per note (8)", n)
	}
	for _, n := range p.Notes() {
		v, _ := p.Voice(n)
		if v.Cursor() > v.Buffer().Frames() {
			t.Errorf("note %d cursor %d past end %d", n, v.Cursor(), v.Buffer().Frames())
		}
	}
}

func BenchmarkTick(b *testing.B) {
	p := voice.NewPool(2, 44100)
	buf := &audio.Buffer{Channels: 2, SampleRate: 44100, Data: make([]float32, 2*44100*60)}
	for n := range uint8(16) {
		_ = p.NoteOn(48+n, buf, 1)
	}

	b.ReportAllocs()
	for b.Loop() {
		p.Tick(512)
	}
}
