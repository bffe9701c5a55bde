// Package dedup implements the fetch deduplication guard. It tracks the
// wall-clock time of the last attempted fetch per (feed key, page) pair
// and suppresses redundant load-more requests issued inside a short
// cooldown window. The cache is suppression-only: it never affects which
// results are applied, and entries are never evicted (bounded by the
// number of distinct feed/page pairs visited in a session).
package dedup

import (
	"fmt"
	"sync"
	"time"

	"github.com/feedkit/feedkit/pkg/feed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultWindow is the cooldown inside which a repeated attempt for the
// same (feed key, page) pair is suppressed.
const DefaultWindow = 5 * time.Second

// SuppressedTotal counts load-more fetches suppressed by the guard.
var SuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "feed_dedup_suppressed_total",
	Help: "Total load-more fetches suppressed by the deduplication guard",
})

// Guard suppresses redundant page fetches. Initial (reset) loads bypass
// the guard entirely; only load-more requests consult it.
type Guard struct {
	window time.Duration

	mu       sync.Mutex
	attempts map[string]time.Time

	// now is overridable in tests.
	now func() time.Time
}

// NewGuard creates a guard with the given cooldown window.
// A non-positive window falls back to DefaultWindow.
func NewGuard(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		window:   window,
		attempts: make(map[string]time.Time),
		now:      time.Now,
	}
}

// ShouldSuppress reports whether a load-more fetch for (key, page) was
// already attempted inside the cooldown window.
func (g *Guard) ShouldSuppress(key feed.Key, page int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.attempts[attemptKey(key, page)]
	if !ok {
		return false
	}

	if g.now().Sub(last) < g.window {
		SuppressedTotal.Inc()
		return true
	}
	return false
}

// RecordAttempt stores the attempt time for (key, page), replacing any
// previous entry.
func (g *Guard) RecordAttempt(key feed.Key, page int, t time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts[attemptKey(key, page)] = t
}

// Len returns the number of distinct (feed key, page) pairs recorded.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.attempts)
}

// attemptKey generates a deterministic map key.
// Format: <feed key>:page=<n>
//
// Example:
//
//	feed:tech:page=2
func attemptKey(key feed.Key, page int) string {
	return fmt.Sprintf("%s:page=%d", key.String(), page)
}
