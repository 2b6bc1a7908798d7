// SPDX-License-Identifier: EPL-2.0

package pitch

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ik5/audsampler/audio"
)

type cacheKey struct {
	generation uint64
	semitones  float64
}

// Cache memoizes Shift per (sample generation, semitones). Entries of
// replaced samples are never hit again and age out of the LRU.
type Cache struct {
	lru    *lru.Cache[cacheKey, *audio.Buffer]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache returns a cache holding up to size shifted buffers.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[cacheKey, *audio.Buffer](size)
	if err != nil {
		return nil, fmt.Errorf("pitch cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Shift returns Shift(buf, semitones), reusing an earlier result for the
// same generation.
func (c *Cache) Shift(buf *audio.Buffer, generation uint64, semitones float64) *audio.Buffer {
	key := cacheKey{generation: generation, semitones: semitones}
	if out, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return out
	}

	c.misses.Add(1)
	out := Shift(buf, semitones)
	c.lru.Add(key, out)

	return out
}

func (c *Cache) Len() int { return c.lru.Len() }

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) Purge() { c.lru.Purge() }
