package engine

import (
	"fmt"
	"sync"
	"time"
)

// OrderIDGenerator produces receipt identifiers. The id is generated
// client-side before any persistence so the local copy and its remote
// mirror share one stable join key.
type OrderIDGenerator interface {
	NextOrderID() string
}

// TimeGenerator issues ids of the form <prefix>-<unix-millis>-<seq>.
// The sequence disambiguates ids minted within the same millisecond on
// one device; cross-device uniqueness comes from the configured prefix.
type TimeGenerator struct {
	Prefix string

	mu       sync.Mutex
	lastMs   int64
	sequence int
}

// NewTimeGenerator returns a generator with the given device prefix.
// An empty prefix falls back to "KS".
func NewTimeGenerator(prefix string) *TimeGenerator {
	if prefix == "" {
		prefix = "KS"
	}
	return &TimeGenerator{Prefix: prefix}
}

func (g *TimeGenerator) NextOrderID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := time.Now().UnixMilli()
	if ms == g.lastMs {
		g.sequence++
	} else {
		g.lastMs = ms
		g.sequence = 1
	}
	return fmt.Sprintf("%s-%d-%d", g.Prefix, ms, g.sequence)
}

// FixedGenerator returns ids from a fixed list, for deterministic
// tests. It panics when the list is exhausted.
type FixedGenerator struct {
	IDs []string

	mu   sync.Mutex
	next int
}

func (g *FixedGenerator) NextOrderID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.IDs) {
		panic("FixedGenerator: out of ids")
	}
	id := g.IDs[g.next]
	g.next++
	return id
}
