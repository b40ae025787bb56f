// Package sizer picks the largest font size at which slide text fits its box.
//
// Sizes are tried from Max downward in Step decrements; the first size whose
// measured extent fits both box axes wins, and Min is returned when none do.
// For a fixed box the chosen size never grows as content gets longer.
package sizer

import (
	"fmt"
	"sync"

	"github.com/desertthunder/lyricslide/internal/shared"
)

const (
	DefaultMin  = 12
	DefaultMax  = 44
	DefaultStep = 2
)

// Box is the rendering area in pixels.
type Box struct {
	Width  int
	Height int
}

// Sizer searches font sizes against a Measurer.
type Sizer struct {
	Min, Max, Step int
	measurer       Measurer
}

// New returns a sizer with the default bounds.
func New(m Measurer) *Sizer {
	return &Sizer{Min: DefaultMin, Max: DefaultMax, Step: DefaultStep, measurer: m}
}

// FromConfig applies [sizer] settings.
func FromConfig(cfg shared.SizerConfig, m Measurer) (*Sizer, error) {
	if cfg.MinSize <= 0 || cfg.MaxSize < cfg.MinSize || cfg.Step <= 0 {
		return nil, fmt.Errorf("%w: sizer bounds min=%d max=%d step=%d", shared.ErrInvalidConfig, cfg.MinSize, cfg.MaxSize, cfg.Step)
	}
	return &Sizer{Min: cfg.MinSize, Max: cfg.MaxSize, Step: cfg.Step, measurer: m}, nil
}

// Fit returns a size in [Min, Max] for content, which may contain <br/>
// markers and inline markup.
func (s *Sizer) Fit(box Box, content string) int {
	text := PlainText(content)
	for size := s.Max; size >= s.Min; size -= s.Step {
		w, h := s.measurer.Measure(text, size, box.Width)
		if w <= box.Width && h <= box.Height {
			return size
		}
	}
	return s.Min
}

type cacheKey struct {
	box     Box
	content string
}

// Cache memoises Fit by box and content, so style-only edits never trigger
// a re-measure.
type Cache struct {
	sizer *Sizer
	limit int

	mu      sync.Mutex
	entries map[cacheKey]int
	hits    int
	misses  int
}

// NewCache wraps s. When more than limit entries accumulate the cache is
// cleared; limit <= 0 means 512.
func NewCache(s *Sizer, limit int) *Cache {
	if limit <= 0 {
		limit = 512
	}
	return &Cache{sizer: s, limit: limit, entries: make(map[cacheKey]int)}
}

func (c *Cache) Fit(box Box, content string) int {
	key := cacheKey{box: box, content: content}

	c.mu.Lock()
	if size, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return size
	}
	c.misses++
	c.mu.Unlock()

	size := c.sizer.Fit(box, content)

	c.mu.Lock()
	if len(c.entries) >= c.limit {
		clear(c.entries)
	}
	c.entries[key] = size
	c.mu.Unlock()
	return size
}

// Stats reports cache hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
