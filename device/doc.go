// SPDX-License-Identifier: EPL-2.0

// Package device provides the output drivers an engine.Engine plays
// through.
//
// Oto opens the system sound card and is compiled unless the headless
// build tag is set. Null paces reads from the engine in real time without
// producing sound, for servers, CI and hosts with no audio hardware.
package device
