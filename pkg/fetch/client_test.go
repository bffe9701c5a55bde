package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feedkit/feedkit/pkg/feed"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			config: Config{
				BaseURL:   "https://api.example.com",
				UserAgent: "TestApp/1.0.0 (test@example.com)",
			},
			expectError: false,
		},
		{
			name: "missing base URL",
			config: Config{
				UserAgent: "TestApp/1.0.0",
			},
			expectError: true,
			errorMsg:    "base URL is required",
		},
		{
			name: "missing user agent",
			config: Config{
				BaseURL: "https://api.example.com",
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if client == nil {
					t.Error("Client is nil")
				}
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("https://api.example.com", "TestApp/1.0.0")

	if cfg.BaseURL != "https://api.example.com" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://api.example.com")
	}
	if cfg.UserAgent != "TestApp/1.0.0" {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, "TestApp/1.0.0")
	}
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", cfg.PageSize, DefaultPageSize)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
}

func TestNew_DefaultsApplied(t *testing.T) {
	client, err := New(Config{
		BaseURL:   "https://api.example.com",
		UserAgent: "TestApp/1.0.0",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if client.PageSize() != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", client.PageSize(), DefaultPageSize)
	}
	if client.config.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", client.config.Retry.MaxAttempts)
	}
}

// newTestClient wires a client to an httptest server with fast retries.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server, *atomic.Int64) {
	t.Helper()

	var requestCount atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:   server.URL,
		UserAgent: "feedkit-test/1.0",
		Retry: RetryConfig{
			MaxAttempts:       2,
			InitialBackoff:    5 * time.Millisecond,
			MaxBackoff:        20 * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	return client, server, &requestCount
}

func TestFetchPage_Success(t *testing.T) {
	items := []feed.Item{
		{ID: "a-1", Section: "tech", Title: "First"},
		{ID: "a-2", Section: "tech", Title: "Second"},
	}

	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("section"); got != "tech" {
			t.Errorf("section query = %q, want %q", got, "tech")
		}
		if got := r.URL.Query().Get("page"); got != "1" {
			t.Errorf("page query = %q, want %q", got, "1")
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit query = %q, want %q", got, "50")
		}
		if r.URL.Query().Has("user_id") {
			t.Error("user_id must not be sent for public feeds")
		}
		if got := r.Header.Get("User-Agent"); got != "feedkit-test/1.0" {
			t.Errorf("User-Agent = %q, want %q", got, "feedkit-test/1.0")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	})

	got, err := client.FetchPage(context.Background(), feed.Key{Section: "tech"}, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Got %d items, want 2", len(got))
	}
	if got[0].ID != "a-1" || got[1].ID != "a-2" {
		t.Errorf("Item order not preserved: %v", got)
	}
}

func TestFetchPage_PersonalizedSendsUserID(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_id"); got != "u-8842" {
			t.Errorf("user_id query = %q, want %q", got, "u-8842")
		}
		w.Write([]byte(`[]`))
	})

	_, err := client.FetchPage(context.Background(), feed.Key{Section: "foryou", UserID: "u-8842"}, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestFetchPage_EmptyBatch(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	got, err := client.FetchPage(context.Background(), feed.Key{Section: "tech"}, 7)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Got %d items, want empty batch", len(got))
	}
}

func TestFetchPage_GuestShortCircuit(t *testing.T) {
	client, _, requestCount := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	key := feed.Key{Section: "foryou", UserID: "guest-42"}
	items, err := client.FetchPage(context.Background(), key, 1)

	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if items != nil {
		t.Errorf("Expected nil items, got %v", items)
	}
	if n := requestCount.Load(); n != 0 {
		t.Errorf("Expected zero network calls, got %d", n)
	}
}

func TestFetchPage_GuestOnPublicFeedAllowed(t *testing.T) {
	// A guest reading a public section feed is fine; only personalized
	// feeds are gated.
	client, _, requestCount := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"w-1","section":"world","title":"News"}]`))
	})

	items, err := client.FetchPage(context.Background(), feed.Key{Section: "world"}, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Got %d items, want 1", len(items))
	}
	if n := requestCount.Load(); n != 1 {
		t.Errorf("Expected 1 network call, got %d", n)
	}
}

func TestFetchPage_InvalidPage(t *testing.T) {
	client, _, requestCount := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.FetchPage(context.Background(), feed.Key{Section: "tech"}, 0)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
	if fetchErr.Class != ErrorClassClient {
		t.Errorf("Class = %q, want %q", fetchErr.Class, ErrorClassClient)
	}
	if n := requestCount.Load(); n != 0 {
		t.Errorf("Expected zero network calls, got %d", n)
	}
}

func TestFetchPage_ServerErrorRetriedThenFails(t *testing.T) {
	client, _, requestCount := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.FetchPage(context.Background(), feed.Key{Section: "tech"}, 1)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if n := requestCount.Load(); n != 2 {
		t.Errorf("Expected 2 attempts (MaxAttempts), got %d", n)
	}
}

func TestFetchPage_ServerErrorThenSuccess(t *testing.T) {
	var calls atomic.Int64
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"id":"t-1","section":"tech","title":"Recovered"}]`))
	})

	items, err := client.FetchPage(context.Background(), feed.Key{Section: "tech"}, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "t-1" {
		t.Errorf("Unexpected items: %v", items)
	}
}

func TestFetchPage_ClientErrorNotRetried(t *testing.T) {
	client, _, requestCount := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.FetchPage(context.Background(), feed.Key{Section: "nope"}, 1)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
	if fetchErr.Class != ErrorClassClient {
		t.Errorf("Class = %q, want %q", fetchErr.Class, ErrorClassClient)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", fetchErr.StatusCode)
	}
	if n := requestCount.Load(); n != 1 {
		t.Errorf("Expected 1 attempt (4xx not retried), got %d", n)
	}
}

func TestFetchPage_MalformedPayload(t *testing.T) {
	client, _, requestCount := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	})

	_, err := client.FetchPage(context.Background(), feed.Key{Section: "tech"}, 1)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
	if fetchErr.Class != ErrorClassDecode {
		t.Errorf("Class = %q, want %q", fetchErr.Class, ErrorClassDecode)
	}
	if n := requestCount.Load(); n != 1 {
		t.Errorf("Expected 1 attempt (decode not retried), got %d", n)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   ErrorClass
	}{
		{400, ErrorClassClient},
		{403, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.statusCode); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.statusCode, got, tt.expected)
		}
	}
}
