// SPDX-License-Identifier: EPL-2.0

// Package effects implements block effects and the ordered chain the
// engine runs them through.
//
// Every effect works in place on an interleaved float32 block and keeps its
// own state. Nothing is shared between effect instances.
package effects

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ik5/audsampler/utils"
)

// Effect transforms one block in place. The block keeps its length.
type Effect interface {
	Name() string
	Apply(block []float32, channels, sampleRate int)
	// Reset clears internal state such as delay lines.
	Reset()
}

// Preparer is implemented by effects that size their state ahead of the
// first Apply.
type Preparer interface {
	Prepare(channels, sampleRate int)
}

// Chain is an ordered list of effects.
//
// Edits build a new list and publish it atomically, so Process never
// blocks and always sees a complete list.
type Chain struct {
	list atomic.Pointer[[]Effect]

	mtx        sync.Mutex
	channels   int
	sampleRate int
}

func NewChain(fx ...Effect) *Chain {
	c := &Chain{}
	list := slices.Clone(fx)
	c.list.Store(&list)
	return c
}

// Prepare sizes the state of every current and future effect for the
// given format. Call it before the chain is attached to a running engine.
func (c *Chain) Prepare(channels, sampleRate int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.channels, c.sampleRate = channels, sampleRate
	for _, e := range c.Effects() {
		prepare(e, channels, sampleRate)
	}
}

func (c *Chain) Append(e Effect) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.sampleRate > 0 {
		prepare(e, c.channels, c.sampleRate)
	}
	c.publish(append(c.Effects(), e))
}

func (c *Chain) Remove(index int) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	list := c.Effects()
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(list))
	}
	c.publish(slices.Delete(list, index, index+1))

	return nil
}

func (c *Chain) Clear() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.publish(nil)
}

func (c *Chain) Len() int {
	if p := c.list.Load(); p != nil {
		return len(*p)
	}
	return 0
}

// Effects returns a copy of the current list.
func (c *Chain) Effects() []Effect {
	if p := c.list.Load(); p != nil {
		return slices.Clone(*p)
	}
	return nil
}

// Names lists the effect names in order.
func (c *Chain) Names() []string {
	list := c.Effects()
	names := make([]string, len(list))
	for i, e := range list {
		names[i] = e.Name()
	}
	return names
}

// Process runs block through every effect in order, then scales it down so
// its peak does not exceed 1.
func (c *Chain) Process(block []float32, channels, sampleRate int) {
	if p := c.list.Load(); p != nil {
		for _, e := range *p {
			e.Apply(block, channels, sampleRate)
		}
	}

	if utils.Peak(block) > 1 {
		utils.ScaleToPeak(block, 1)
		// Rounding in the scale factor can leave a sample one ulp over.
		for i, v := range block {
			block[i] = utils.Clamp(v, -1, 1)
		}
	}
}

// Reset clears the state of every effect. Like Prepare it must not race
// with Process.
func (c *Chain) Reset() {
	for _, e := range c.Effects() {
		e.Reset()
	}
}

func (c *Chain) publish(list []Effect) {
	c.list.Store(&list)
}

func prepare(e Effect, channels, sampleRate int) {
	if p, ok := e.(Preparer); ok {
		p.Prepare(channels, sampleRate)
	}
}
