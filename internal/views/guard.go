package views

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Guard limits how many comments one address may post per window.
type Guard struct {
	clock  clock.Clock
	seen   map[string][]time.Time
	limit  int
	window time.Duration
	mu     sync.Mutex
}

// NewGuard allows limit posts per address within window.
func NewGuard(limit int, window time.Duration, c clock.Clock) *Guard {
	if c == nil {
		c = clock.New()
	}
	return &Guard{
		clock:  c,
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Allow records a post from addr and reports whether it is within the limit.
func (g *Guard) Allow(addr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	cutoff := now.Add(-g.window)

	recent := g.seen[addr][:0]
	for _, t := range g.seen[addr] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= g.limit {
		g.seen[addr] = recent
		return false
	}
	g.seen[addr] = append(recent, now)

	// Drop idle addresses.
	for k, times := range g.seen {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(g.seen, k)
		}
	}
	return true
}
