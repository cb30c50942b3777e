package ui

import (
	"hash/fnv"
	"math"
	"sync"
)

// renderCache memoizes rendered fragments that are costly to rebuild on every
// frame: glamour output and orb bitmaps. It is cleared wholesale when full.
type renderCache struct {
	mu      sync.Mutex
	entries map[uint64]string
	maxSize int
	hits    int
	misses  int
}

func newRenderCache(maxSize int) *renderCache {
	return &renderCache{entries: make(map[uint64]string), maxSize: maxSize}
}

// cacheKey hashes the inputs with FNV-1a. Only strings, ints, floats and bools
// contribute.
func cacheKey(inputs ...any) uint64 {
	h := fnv.New64a()
	var b [8]byte
	put := func(u uint64) {
		for i := range b {
			b[i] = byte(u >> (8 * i))
		}
		h.Write(b[:])
	}
	for _, in := range inputs {
		switch v := in.(type) {
		case string:
			h.Write([]byte(v))
			h.Write([]byte{0})
		case int:
			put(uint64(v))
		case float64:
			put(math.Float64bits(v))
		case bool:
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}
	}
	return h.Sum64()
}

// get returns the cached value for key, building and storing it on a miss.
func (c *renderCache) get(key uint64, build func() string) string {
	c.mu.Lock()
	if s, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return s
	}
	c.misses++
	c.mu.Unlock()

	s := build()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		clear(c.entries)
	}
	c.entries[key] = s
	return s
}

func (c *renderCache) stats() (hits, misses, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}
