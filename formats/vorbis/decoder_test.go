// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type fakeOgg struct {
	channels int
	data     []float32
	fail     error
}

func (f *fakeOgg) SampleRate() int { return 48000 }
func (f *fakeOgg) Channels() int   { return f.channels }

func (f *fakeOgg) Read(p []float32) (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	src := &source{dec: &fakeOgg{channels: 2, data: []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}}, channels: 2}

	// An odd-sized dst is trimmed to whole frames.
	dst := make([]float32, 5)
	n, err := src.ReadSamples(dst)
	if n != 4 || err != nil {
		t.Fatalf("ReadSamples() = %d, %v; want 4, nil", n, err)
	}

	n, err = src.ReadSamples(dst)
	if n != 2 || dst[0] != 0.5 || dst[1] != 0.6 {
		t.Fatalf("ReadSamples() = %d (%v), want 2 samples 0.5 0.6", n, dst[:n])
	}
	if err != nil {
		t.Fatal(err)
	}

	if n, err := src.ReadSamples(dst); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() at end = %d, %v; want 0, EOF", n, err)
	}
}

func TestSource_Error(t *testing.T) {
	t.Parallel()

	src := &source{dec: &fakeOgg{channels: 1, fail: io.ErrUnexpectedEOF}, channels: 1}
	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("OggS but not really"))); !errors.Is(err, ErrNotVorbisFile) {
		t.Errorf("Decode() error = %v, want ErrNotVorbisFile", err)
	}
}
