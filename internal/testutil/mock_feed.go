// Package testutil provides testing utilities for the feed engine.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/feedkit/feedkit/pkg/feed"
)

// MockFeed is a configurable mock feed service for testing. It serves the
// /feed-items read endpoint from in-memory page tables and supports
// failure injection and artificial latency.
type MockFeed struct {
	server *httptest.Server

	mu    sync.RWMutex
	pages map[string][][]feed.Item

	failRemaining int
	failStatus    int
	malformed     bool
	delay         time.Duration

	// Tracking
	requestCount int
	lastQuery    url.Values
}

// NewMockFeed creates a new mock feed server with no content configured.
func NewMockFeed() *MockFeed {
	mock := &MockFeed{
		pages: make(map[string][][]feed.Item),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

// URL returns the mock server URL.
func (m *MockFeed) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockFeed) Close() {
	m.server.Close()
}

// Reset clears tracking counters and failure injection, keeping content.
func (m *MockFeed) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.lastQuery = nil
	m.failRemaining = 0
	m.malformed = false
	m.delay = 0
}

// SetPages configures the page table for a public section feed.
func (m *MockFeed) SetPages(section string, pages [][]feed.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[contentKey(section, "")] = pages
}

// SetPersonalizedPages configures the page table for a personalized feed.
func (m *MockFeed) SetPersonalizedPages(section, userID string, pages [][]feed.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[contentKey(section, userID)] = pages
}

// FailNext makes the next n requests respond with the given HTTP status.
func (m *MockFeed) FailNext(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRemaining = n
	m.failStatus = status
}

// MalformNext makes subsequent responses syntactically invalid JSON until
// Reset is called.
func (m *MockFeed) MalformNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed = true
}

// SetDelay adds artificial latency to every response.
func (m *MockFeed) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockFeed) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockFeed) LastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

func (m *MockFeed) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.lastQuery = r.URL.Query()

	delay := m.delay
	malformed := m.malformed
	failing := m.failRemaining > 0
	failStatus := m.failStatus
	if failing {
		m.failRemaining--
	}

	query := r.URL.Query()
	key := contentKey(query.Get("section"), query.Get("user_id"))
	pages := m.pages[key]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.URL.Path != "/feed-items" {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		return
	}

	if failing {
		http.Error(w, `{"error": "injected failure"}`, failStatus)
		return
	}

	if malformed {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"truncated`))
		return
	}

	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		http.Error(w, `{"error": "invalid page"}`, http.StatusBadRequest)
		return
	}

	// Past the configured content: empty batch signals exhaustion.
	if page > len(pages) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(pages[page-1])
}

// contentKey identifies a configured feed within the mock.
func contentKey(section, userID string) string {
	if userID == "" {
		return section
	}
	return section + "|" + userID
}

// GeneratePages builds a deterministic page table: pageCount pages of
// perPage items each for the given section.
func GeneratePages(section string, pageCount, perPage int) [][]feed.Item {
	pages := make([][]feed.Item, pageCount)
	for p := range pages {
		items := make([]feed.Item, perPage)
		for i := range items {
			items[i] = feed.Item{
				ID:          fmt.Sprintf("%s-p%d-%d", section, p+1, i),
				Section:     section,
				Title:       fmt.Sprintf("%s story %d.%d", section, p+1, i),
				URL:         fmt.Sprintf("https://example.com/%s/%d/%d", section, p+1, i),
				PublishedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(p*perPage+i) * time.Hour),
			}
		}
		pages[p] = items
	}
	return pages
}
