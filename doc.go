// SPDX-License-Identifier: EPL-2.0

// Package audsampler is a real-time polyphonic sampler.
//
// A Sampler holds one base sample and plays it back pitch-shifted, one voice
// per MIDI note, through an optional effect chain to an audio device. Note
// events can arrive from any goroutine; the audio device pulls fixed-size
// blocks and never waits on them.
//
// # Quick Start
//
//	cfg := audsampler.DefaultConfig()
//	cfg.SamplePath = "piano-c4.wav"
//
//	s, err := audsampler.New(cfg, device.Default())
//	if err != nil {
//	    return err
//	}
//
//	go s.Run(ctx)
//
//	s.Submit(router.NoteOn{Note: 64, Velocity: 100})
//	s.Submit(router.NoteOff{Note: 64})
//
// # Building Blocks
//
// Each stage lives in its own package and can be used alone:
//   - bank holds the current sample and swaps it atomically on load
//   - pitch shifts a sample by semitones with cubic interpolation
//   - voice mixes the sounding notes and fades released ones
//   - effects provides reverb, delay, distortion, chorus and the limiter
//   - engine renders blocks and feeds them to a device
//   - router turns NoteOn, NoteOff and SampleChange events into voices
//
// # Samples
//
// Samples are decoded fully into memory and converted to the engine's rate
// and channel count when loaded, so playback never resamples. The default
// registry reads WAV, AIFF, MP3 and Ogg Vorbis files. Without a sample
// path the sampler plays a built-in decaying tone.
//
// # Offline Rendering
//
// Render plays a timed list of events without a device and writes the
// result as 16-bit PCM WAV:
//
//	score := []audsampler.Cue{
//	    {At: 0, Event: router.NoteOn{Note: 60, Velocity: 100}},
//	    {At: time.Second, Event: router.NoteOff{Note: 60}},
//	}
//	err := s.Render(out, score, 2*time.Second)
package audsampler
