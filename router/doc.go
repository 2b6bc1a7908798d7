// SPDX-License-Identifier: EPL-2.0

// Package router turns note events into voices.
//
// Events come from any number of control goroutines. Submit queues them in
// arrival order; Run applies them one at a time on a single worker, doing
// the pitch shift before the voice pool lock is ever taken. Handle applies
// a single event synchronously.
//
// Events reach the router already decoded: DecodeMIDI and MIDIReader map
// raw MIDI bytes, ParseCommand maps the line-oriented text protocol.
package router
