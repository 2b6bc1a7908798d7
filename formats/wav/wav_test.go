// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/audsampler/audio"
)

// rawWAV builds a WAV file with an arbitrary format tag and bit depth.
func rawWAV(formatTag, channels, bits, sampleRate int, data []byte) []byte {
	buf := new(bytes.Buffer)
	blockAlign := channels * bits / 8

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(formatTag))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bits))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}

func decodeAll(t *testing.T, data []byte) *audio.Buffer {
	t.Helper()

	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	b, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return b
}

func TestRoundTrip16(t *testing.T) {
	t.Parallel()

	pcm := []int16{0, 16384, -16384, 32767, -32768, 100}
	var buf bytes.Buffer
	if err := WriteWAV16(&buf, 22050, 2, pcm); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != headerSize+2*len(pcm) {
		t.Fatalf("file size = %d, want %d", buf.Len(), headerSize+2*len(pcm))
	}

	b := decodeAll(t, buf.Bytes())
	if b.Channels != 2 || b.SampleRate != 22050 {
		t.Errorf("format = %dch@%d, want 2ch@22050", b.Channels, b.SampleRate)
	}
	if len(b.Data) != len(pcm) {
		t.Fatalf("decoded %d samples, want %d", len(b.Data), len(pcm))
	}
	for i, s := range pcm {
		if want := float32(s) / 32768; b.Data[i] != want {
			t.Errorf("sample %d = %v, want %v", i, b.Data[i], want)
		}
	}
}

func TestDecode_BitDepths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bits int
		data []byte
		want []float32
	}{
		{"8 bit unsigned", 8, []byte{128, 0, 192}, []float32{0, -1, 0.5}},
		{"24 bit", 24, []byte{0x00, 0x00, 0x40, 0x00, 0x00, 0xC0}, []float32{0.5, -0.5}},
		{"32 bit", 32, []byte{0, 0, 0, 0x40, 0, 0, 0, 0x80}, []float32{0.5, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := decodeAll(t, rawWAV(formatPCM, 1, tt.bits, 8000, tt.data))
			if len(b.Data) != len(tt.want) {
				t.Fatalf("decoded %d samples, want %d", len(b.Data), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(float64(b.Data[i]-tt.want[i])) > 1e-6 {
					t.Errorf("sample %d = %v, want %v", i, b.Data[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"garbage", []byte("this is not a riff file at all, really"), ErrNotWavFile},
		{"empty", nil, ErrNotWavFile},
		{"float", rawWAV(3, 1, 32, 8000, make([]byte, 16)), ErrOnlyPCMSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := (Decoder{}).Decode(bytes.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecode_NonSeekable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_ = WriteWAV16(&buf, 8000, 1, []int16{1, 2, 3, 4})

	src, err := Decoder{}.Decode(io.MultiReader(&buf))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 8000 || src.Channels() != 1 {
		t.Errorf("format = %dch@%d", src.Channels(), src.SampleRate())
	}
}

func TestWriteWAV16_Invalid(t *testing.T) {
	t.Parallel()

	err := WriteWAV16(io.Discard, 8000, 2, []int16{1, 2, 3})
	if !errors.Is(err, audio.ErrInvalidDstSize) {
		t.Errorf("WriteWAV16() error = %v, want ErrInvalidDstSize", err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteBuffer(t *testing.T) {
	t.Parallel()

	in, _ := audio.NewBuffer(1, 8000, []float32{0.5, -2, 2})

	var buf bytes.Buffer
	if err := WriteBuffer(&buf, in); err != nil {
		t.Fatal(err)
	}

	out := decodeAll(t, buf.Bytes())
	want := []float32{16383.0 / 32768, -32767.0 / 32768, 32767.0 / 32768}
	for i := range want {
		if out.Data[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, out.Data[i], want[i])
		}
	}

	if err := WriteBuffer(failWriter{}, in); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("WriteBuffer() error = %v, want ErrClosedPipe", err)
	}
}
