package pager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/feedkit/feedkit/pkg/dedup"
	"github.com/feedkit/feedkit/pkg/fallback"
	"github.com/feedkit/feedkit/pkg/feed"
	"github.com/feedkit/feedkit/pkg/fetch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ForbiddenAdvisory is the fixed message recorded when a restricted guest
// selects a personalized feed.
const ForbiddenAdvisory = "Sign in to see your personalized feed."

// Prometheus metrics for pagination operations.
var (
	pagesLoadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_pages_loaded_total",
		Help: "Total pages merged into the accumulated list, by section",
	}, []string{"section"})

	staleDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_stale_responses_discarded_total",
		Help: "Responses discarded because the feed key changed while in flight",
	})

	feedsExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_exhausted_total",
		Help: "Feed key lifetimes that reached exhaustion, by section",
	}, []string{"section"})
)

// Fetcher fetches one page of a feed. Satisfied by *fetch.Client.
type Fetcher interface {
	FetchPage(ctx context.Context, key feed.Key, page int) ([]feed.Item, error)
}

// Guard suppresses redundant load-more fetches. Satisfied by *dedup.Guard.
type Guard interface {
	ShouldSuppress(key feed.Key, page int) bool
	RecordAttempt(key feed.Key, page int, t time.Time)
}

// FallbackSource supplies local content for initial-load failures.
// Satisfied by *fallback.Static.
type FallbackSource interface {
	Fallback(key feed.Key) []feed.Item
}

// Pager is the pagination state machine. It exclusively owns the
// accumulated state for the selected feed key; collaborators only ever
// observe it through Snapshot.
type Pager struct {
	fetcher  Fetcher
	guard    Guard
	fallback FallbackSource
	logger   zerolog.Logger
	onUpdate func(Snapshot)
	now      func() time.Time

	mu     sync.Mutex
	gen    uint64
	hasKey bool
	key    feed.Key

	items          []feed.Item
	cursor         int
	exhausted      bool
	initialLoading bool
	loadingMore    bool
	lastError      string
}

// Config holds the pager configuration.
type Config struct {
	// Fetcher performs page fetches (required).
	Fetcher Fetcher

	// Guard deduplicates load-more attempts. Defaults to a fresh
	// dedup.Guard with the standard window.
	Guard Guard

	// Fallback supplies content on initial-load failure. Defaults to the
	// built-in static dataset.
	Fallback FallbackSource

	// OnUpdate, if set, is invoked with a fresh Snapshot after every
	// state change. Called outside the pager's lock; it may call back
	// into the pager.
	OnUpdate func(Snapshot)
}

// New creates a pagination state machine.
func New(cfg Config) (*Pager, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	if cfg.Guard == nil {
		cfg.Guard = dedup.NewGuard(dedup.DefaultWindow)
	}

	if cfg.Fallback == nil {
		cfg.Fallback = fallback.NewStatic()
	}

	logger := log.With().Str("component", "feed-pager").Logger()

	return &Pager{
		fetcher:  cfg.Fetcher,
		guard:    cfg.Guard,
		fallback: cfg.Fallback,
		logger:   logger,
		onUpdate: cfg.OnUpdate,
		now:      time.Now,
	}, nil
}

// ResetAndLoad clears all accumulated state for the given feed key and
// performs the page-1 fetch, bypassing the deduplication guard. Failures
// are absorbed: a failed initial load degrades to fallback content and
// marks the feed exhausted. Never returns an error to the caller.
func (p *Pager) ResetAndLoad(ctx context.Context, key feed.Key) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.hasKey = true
	p.key = key
	p.items = nil
	p.cursor = 1
	p.exhausted = false
	p.initialLoading = true
	p.loadingMore = false
	p.lastError = ""
	p.mu.Unlock()
	p.emit()

	p.logger.Debug().
		Str("feed_key", key.String()).
		Msg("Reset and initial load")

	batch, err := p.fetcher.FetchPage(ctx, key, 1)

	p.mu.Lock()
	if gen != p.gen {
		// The feed key changed (or another reset ran) while this fetch
		// was in flight. Applying the result would contaminate the new
		// feed's list.
		staleDiscardedTotal.Inc()
		p.logger.Debug().
			Str("feed_key", key.String()).
			Msg("Discarding stale initial-load response")
		p.mu.Unlock()
		return
	}

	// Guaranteed cleanup: the loading indicator can never be left stuck.
	p.initialLoading = false

	switch {
	case errors.Is(err, fetch.ErrForbidden):
		p.items = nil
		p.exhausted = true
		p.lastError = ForbiddenAdvisory
		feedsExhaustedTotal.WithLabelValues(key.Section).Inc()
		p.logger.Info().
			Str("feed_key", key.String()).
			Msg("Personalized feed forbidden for restricted guest")

	case err != nil:
		// Fallback is static and finite, so the feed is exhausted.
		p.items = p.fallback.Fallback(key)
		p.exhausted = true
		p.lastError = err.Error()
		feedsExhaustedTotal.WithLabelValues(key.Section).Inc()
		p.logger.Warn().
			Err(err).
			Str("feed_key", key.String()).
			Int("fallback_items", len(p.items)).
			Msg("Initial load failed, serving fallback")

	case len(batch) == 0:
		p.items = []feed.Item{}
		p.exhausted = true
		feedsExhaustedTotal.WithLabelValues(key.Section).Inc()
		p.logger.Debug().
			Str("feed_key", key.String()).
			Msg("Feed exhausted on initial load")

	default:
		p.items = batch
		pagesLoadedTotal.WithLabelValues(key.Section).Inc()
		p.logger.Debug().
			Str("feed_key", key.String()).
			Int("items", len(batch)).
			Msg("Initial load complete")
	}
	p.mu.Unlock()
	p.emit()
}

// LoadNext fetches the next page for the current feed key and appends the
// batch to the accumulated list. It is a guarded no-op while exhausted,
// while the initial load is pending, while another load-more is in
// flight, or while the deduplication guard suppresses the page. Failures
// leave the existing list untouched and remain retryable.
func (p *Pager) LoadNext(ctx context.Context) {
	p.mu.Lock()
	if !p.hasKey || p.exhausted || p.loadingMore || p.initialLoading {
		p.mu.Unlock()
		return
	}

	key := p.key
	next := p.cursor + 1

	// Guard check happens synchronously under the lock, before any
	// network work, so concurrent triggers race only here and exactly
	// one wins.
	if p.guard.ShouldSuppress(key, next) {
		p.logger.Debug().
			Str("feed_key", key.String()).
			Int("page", next).
			Msg("Load-more suppressed by dedup guard")
		p.mu.Unlock()
		return
	}

	gen := p.gen
	p.loadingMore = true
	p.guard.RecordAttempt(key, next, p.now())
	p.mu.Unlock()
	p.emit()

	batch, err := p.fetcher.FetchPage(ctx, key, next)

	p.mu.Lock()
	if gen != p.gen {
		staleDiscardedTotal.Inc()
		p.logger.Debug().
			Str("feed_key", key.String()).
			Int("page", next).
			Msg("Discarding stale load-more response")
		p.mu.Unlock()
		return
	}

	p.loadingMore = false

	switch {
	case errors.Is(err, fetch.ErrForbidden):
		// Identity classification changed mid-lifetime. Treat like
		// exhaustion with the advisory message; never an exception.
		p.exhausted = true
		p.lastError = ForbiddenAdvisory
		feedsExhaustedTotal.WithLabelValues(key.Section).Inc()

	case err != nil:
		// Transient, not exhaustion: the sentinel may trigger another
		// attempt later. Items and cursor stay untouched.
		p.lastError = err.Error()
		p.logger.Warn().
			Err(err).
			Str("feed_key", key.String()).
			Int("page", next).
			Msg("Load-more failed")

	case len(batch) == 0:
		p.exhausted = true
		feedsExhaustedTotal.WithLabelValues(key.Section).Inc()
		p.logger.Debug().
			Str("feed_key", key.String()).
			Int("page", next).
			Msg("Feed exhausted")

	default:
		p.items = append(p.items, batch...)
		p.cursor = next
		p.lastError = ""
		pagesLoadedTotal.WithLabelValues(key.Section).Inc()
		p.logger.Debug().
			Str("feed_key", key.String()).
			Int("page", next).
			Int("items", len(batch)).
			Int("total", len(p.items)).
			Msg("Page merged")
	}
	p.mu.Unlock()
	p.emit()
}

// SelectFeed switches to a new feed key, resetting and loading it. A
// reselect of the current key is a no-op so UI re-renders never cause
// redundant resets.
func (p *Pager) SelectFeed(ctx context.Context, key feed.Key) {
	p.mu.Lock()
	if p.hasKey && p.key == key {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.ResetAndLoad(ctx, key)
}

// Snapshot returns a defensive copy of the current pagination state.
func (p *Pager) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := make([]feed.Item, len(p.items))
	copy(items, p.items)

	return Snapshot{
		Key:            p.key,
		Items:          items,
		Cursor:         p.cursor,
		Exhausted:      p.exhausted,
		InitialLoading: p.initialLoading,
		LoadingMore:    p.loadingMore,
		LastError:      p.lastError,
	}
}

// emit delivers a fresh snapshot to the update callback, outside the lock.
func (p *Pager) emit() {
	if p.onUpdate == nil {
		return
	}
	p.onUpdate(p.Snapshot())
}
