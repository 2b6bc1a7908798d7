// SPDX-License-Identifier: EPL-2.0

// Package audio provides the PCM plumbing shared by the sampler: the Source
// stream interface, a decoder Registry, fully decoded Buffers and the
// stages that adapt a stream to the engine format.
//
// All samples are interleaved float32 values in [-1, 1].
//
// # Pipelines
//
// Stages wrap a Source and are themselves Sources:
//
//	src, _ := dec.Decode(f)
//	conv, _ := audio.Convert(src, 2, 48000) // StereoSplitter + Resampler
//	buf, _ := audio.ReadAll(conv)
//
// MonoMixer averages channels, StereoSplitter duplicates a mono channel and
// Resampler changes the rate with cubic interpolation. ReadAll drains a
// pipeline into a Buffer.
//
// # Errors
//
// ReadSamples returns io.EOF at end of stream, possibly together with the
// last samples. Any other error aborts the pipeline.
package audio
