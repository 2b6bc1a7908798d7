// SPDX-License-Identifier: EPL-2.0

// Package wav decodes integer PCM WAV files through github.com/go-audio/wav
// and writes 16-bit PCM WAV files.
//
// The decoder accepts 8, 16, 24 and 32 bit PCM with any channel count and
// sample rate. IEEE float and compressed WAV files are rejected with
// ErrOnlyPCMSupported.
//
//	src, err := wav.Decoder{}.Decode(f)
//
// WriteWAV16 and WriteBuffer produce a canonical 44-byte header file and
// only need an io.Writer.
package wav
