// Package fallback supplies a small fixed local dataset served when the
// very first fetch of a feed fails, so the UI never shows a hard error on
// initial load. It is never used for load-more failures.
package fallback

import (
	"time"

	"github.com/feedkit/feedkit/pkg/feed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServedTotal counts fallback datasets served by section.
var ServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feed_fallback_served_total",
	Help: "Total fallback datasets served on initial-load failure, by section",
}, []string{"section"})

// Static serves a fixed in-process dataset.
type Static struct {
	items []feed.Item
}

// NewStatic creates a fallback source with the built-in dataset.
func NewStatic() *Static {
	return &Static{items: builtinItems()}
}

// NewStaticWith creates a fallback source with a custom dataset.
func NewStaticWith(items []feed.Item) *Static {
	return &Static{items: items}
}

// Fallback returns the static items matching the feed key's section.
// Personalized keys receive the whole dataset, since no local ranking
// information exists for them.
func (s *Static) Fallback(key feed.Key) []feed.Item {
	ServedTotal.WithLabelValues(key.Section).Inc()

	if key.Personalized() {
		out := make([]feed.Item, len(s.items))
		copy(out, s.items)
		return out
	}

	var out []feed.Item
	for _, item := range s.items {
		if item.Section == key.Section {
			out = append(out, item)
		}
	}
	return out
}

// builtinItems is the shipped offline dataset. Kept deliberately small;
// it only has to fill the first screen while the backend is unreachable.
func builtinItems() []feed.Item {
	published := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	return []feed.Item{
		{ID: "offline-world-1", Section: "world", Title: "Global markets steady as trade talks resume", URL: "https://example.com/offline/world-1", PublishedAt: published},
		{ID: "offline-world-2", Section: "world", Title: "Coastal cities expand flood defenses", URL: "https://example.com/offline/world-2", PublishedAt: published},
		{ID: "offline-tech-1", Section: "tech", Title: "Open-source maintainers push for sustainable funding", URL: "https://example.com/offline/tech-1", PublishedAt: published},
		{ID: "offline-tech-2", Section: "tech", Title: "Chipmakers bet on low-power inference hardware", URL: "https://example.com/offline/tech-2", PublishedAt: published},
		{ID: "offline-sports-1", Section: "sports", Title: "Underdogs advance after extra-time thriller", URL: "https://example.com/offline/sports-1", PublishedAt: published},
		{ID: "offline-sports-2", Section: "sports", Title: "Marathon record falls on a cold morning", URL: "https://example.com/offline/sports-2", PublishedAt: published},
		{ID: "offline-culture-1", Section: "culture", Title: "Restored silent film screens to a full house", URL: "https://example.com/offline/culture-1", PublishedAt: published},
	}
}
