// SPDX-License-Identifier: EPL-2.0

package router

import "errors"

var (
	// ErrProtocol marks a malformed or unrecognized event. Such events never
	// reach the voice pool.
	ErrProtocol = errors.New("protocol error")

	ErrQueueFull = errors.New("event queue full")
	ErrNoSample  = errors.New("no sample loaded")
)
