// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/audsampler/audio"
	"github.com/ik5/audsampler/utils"
)

const headerSize = 44

// WriteWAV16 writes interleaved int16 PCM as a canonical 44-byte header WAV.
// len(samples) must be a multiple of channels.
func WriteWAV16(w io.Writer, sampleRate, channels int, samples []int16) error {
	if channels < 1 || len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", audio.ErrInvalidDstSize, len(samples), channels)
	}

	blockAlign := uint16(channels) * 2
	dataSize := uint32(len(samples) * 2)

	header := make([]byte, headerSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate)*uint32(blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], 16)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	const chunk = 8192
	buf := make([]byte, 2*min(len(samples), chunk))

	for i := 0; i < len(samples); i += chunk {
		part := samples[i:min(i+chunk, len(samples))]
		out := buf[:2*len(part)]
		for j, s := range part {
			binary.LittleEndian.PutUint16(out[2*j:], uint16(s))
		}
		if _, err := w.Write(out); err != nil {
			return fmt.Errorf("write wav data: %w", err)
		}
	}

	return nil
}

// WriteBuffer encodes b as 16-bit PCM, clamping samples to [-1, 1].
func WriteBuffer(w io.Writer, b *audio.Buffer) error {
	pcm := make([]int16, len(b.Data))
	for i, v := range b.Data {
		pcm[i] = utils.Float32ToInt16(v)
	}

	return WriteWAV16(w, b.SampleRate, b.Channels, pcm)
}
