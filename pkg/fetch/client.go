// Package fetch provides the feed fetch client: a transport-only HTTP
// client mapping (feed key, page) to an ordered batch of feed items,
// with error classification and retry handling.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/feedkit/feedkit/pkg/feed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is the fixed batch size requested from the feed endpoint.
const DefaultPageSize = 50

// feedItemsPath is the remote read endpoint consumed by the client.
const feedItemsPath = "/feed-items"

// Prometheus metrics for fetch client operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_fetch_requests_total",
		Help: "Total feed fetch requests by section and status",
	}, []string{"section", "status"})

	fetchRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_fetch_duration_seconds",
		Help:    "Feed fetch duration in seconds by section",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"section"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_fetch_errors_total",
		Help: "Total feed fetch errors by class",
	}, []string{"class"})

	fetchForbiddenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_fetch_forbidden_total",
		Help: "Personalized fetches short-circuited for restricted guests",
	})
)

// Client is the feed fetch client. It performs no local mutation beyond
// metrics and logging; each call is a plain transport request.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the remote feed service (e.g. "https://api.example.com").
	BaseURL string

	// User-Agent header sent with every request.
	UserAgent string

	// PageSize is the batch size requested per page (default 50).
	PageSize int

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// Retry configuration for server/network failures.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		PageSize:  DefaultPageSize,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new feed fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "feed-fetch").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// FetchPage fetches a single page of a feed.
// It returns the ordered batch for the page; an empty batch means the feed
// is exhausted at this page. All failures surface as *FetchError except
// the guest short-circuit, which returns ErrForbidden without any I/O.
func (c *Client) FetchPage(ctx context.Context, key feed.Key, page int) ([]feed.Item, error) {
	if page < 1 {
		return nil, &FetchError{
			Class:   ErrorClassClient,
			Message: fmt.Sprintf("page must be >= 1 (got %d)", page),
		}
	}

	// Restricted guests never reach personalized endpoints. This check
	// runs before any request is built.
	if key.Personalized() && feed.IsRestrictedGuest(key.UserID) {
		fetchForbiddenTotal.Inc()
		c.logger.Debug().
			Str("feed_key", key.String()).
			Msg("Personalized fetch short-circuited for restricted guest")
		return nil, ErrForbidden
	}

	startTime := time.Now()
	defer func() {
		fetchRequestDuration.WithLabelValues(key.Section).Observe(time.Since(startTime).Seconds())
	}()

	requestURL := c.pageURL(key, page)

	c.logger.Debug().
		Str("feed_key", key.String()).
		Int("page", page).
		Msg("Executing feed fetch")

	var items []feed.Item

	retryErr := retryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return &FetchError{Class: ErrorClassNetwork, Message: "create request", Err: err}
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("feed_key", key.String()).Int("page", page).Msg("HTTP request failed")
			fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			fetchRequestsTotal.WithLabelValues(key.Section, "network_error").Inc()
			return &FetchError{Class: ErrorClassNetwork, Message: "request failed", Err: reqErr}
		}
		defer resp.Body.Close()

		fetchRequestsTotal.WithLabelValues(key.Section, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			errClass := classifyStatus(resp.StatusCode)
			fetchErrorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("feed_key", key.String()).
				Int("page", page).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Feed fetch error")

			return &FetchError{
				StatusCode: resp.StatusCode,
				Class:      errClass,
				Message:    resp.Status,
			}
		}

		var batch []feed.Item
		if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			c.logger.Warn().Err(err).Str("feed_key", key.String()).Int("page", page).Msg("Malformed feed payload")
			return &FetchError{
				StatusCode: resp.StatusCode,
				Class:      ErrorClassDecode,
				Message:    "malformed payload",
				Err:        err,
			}
		}

		items = batch
		return nil
	}, classifyError)

	if retryErr != nil {
		return nil, retryErr
	}

	c.logger.Debug().
		Str("feed_key", key.String()).
		Int("page", page).
		Int("items", len(items)).
		Dur("duration", time.Since(startTime)).
		Msg("Feed fetch complete")

	return items, nil
}

// PageSize returns the configured batch size.
func (c *Client) PageSize() int {
	return c.config.PageSize
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// pageURL builds the remote read URL for a feed key and page.
func (c *Client) pageURL(key feed.Key, page int) string {
	params := url.Values{}
	params.Set("section", key.Section)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(c.config.PageSize))
	if key.Personalized() {
		params.Set("user_id", key.UserID)
	}
	return c.config.BaseURL + feedItemsPath + "?" + params.Encode()
}

// classifyStatus categorizes a non-success HTTP status for observability
// and retry handling.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassNetwork
	}
}

// classifyError extracts the error class from a fetch failure.
func classifyError(err error) ErrorClass {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Class
	}
	return ErrorClassNetwork
}
