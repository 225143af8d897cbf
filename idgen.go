package bytetrack

import (
	"sync"
)

// IDGenerator hands out monotonically increasing track identities.  IDs
// start at 1 and are never reused, even after the track they named is
// removed.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

// Next returns the next unused identity
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last++
	return g.last
}

// Current returns the most recently issued identity, or 0 if none have
// been issued yet
func (g *IDGenerator) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
