// feedtail tails a content feed from the command line: it runs the
// pagination engine against a live feed service and prints each merged
// page, stopping at exhaustion or a configured page limit.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/feedkit/feedkit/pkg/feed"
	"github.com/feedkit/feedkit/pkg/fetch"
	"github.com/feedkit/feedkit/pkg/logging"
	"github.com/feedkit/feedkit/pkg/pager"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// cliConfig is the YAML configuration file format. Flags override file
// values; file values override defaults.
type cliConfig struct {
	BaseURL     string `yaml:"base_url"`
	UserAgent   string `yaml:"user_agent"`
	UserID      string `yaml:"user_id"`
	PageSize    int    `yaml:"page_size"`
	MaxPages    int    `yaml:"max_pages"`
	LogLevel    string `yaml:"log_level"`
	LogPretty   bool   `yaml:"log_pretty"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// defaultCLIConfig returns the built-in defaults.
func defaultCLIConfig() cliConfig {
	return cliConfig{
		UserAgent: "feedtail/0.1.0",
		PageSize:  fetch.DefaultPageSize,
		MaxPages:  5,
		LogLevel:  "info",
		LogPretty: true,
	}
}

// loadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func loadConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		baseURL     string
		userID      string
		maxPages    int
		metricsAddr string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "feedtail <section>",
		Short: "Tail a content feed section page by page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			// Flags override the config file.
			if cmd.Flags().Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if cmd.Flags().Changed("user") {
				cfg.UserID = userID
			}
			if cmd.Flags().Changed("pages") {
				cfg.MaxPages = maxPages
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			if cfg.BaseURL == "" {
				return fmt.Errorf("base URL is required (--base-url or config file)")
			}

			return run(cmd.Context(), cfg, args[0])
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "feed service base URL")
	cmd.Flags().StringVar(&userID, "user", "", "identity handle for personalized feeds")
	cmd.Flags().IntVar(&maxPages, "pages", 5, "maximum pages to fetch")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func run(ctx context.Context, cfg cliConfig, section string) error {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	client, err := fetch.New(fetch.Config{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		PageSize:  cfg.PageSize,
	})
	if err != nil {
		return fmt.Errorf("create fetch client: %w", err)
	}

	p, err := pager.New(pager.Config{Fetcher: client})
	if err != nil {
		return fmt.Errorf("create pager: %w", err)
	}

	key := feed.Key{Section: section, UserID: cfg.UserID}
	logger.Info().
		Str("feed_key", key.String()).
		Int("max_pages", cfg.MaxPages).
		Msg("Tailing feed")

	p.ResetAndLoad(ctx, key)

	printed := 0
	printed = printNew(p.Snapshot(), printed)

	for {
		snap := p.Snapshot()
		if snap.Exhausted || snap.Cursor >= cfg.MaxPages {
			break
		}

		p.LoadNext(ctx)

		next := p.Snapshot()
		printed = printNew(next, printed)

		if next.Cursor == snap.Cursor && !next.Exhausted {
			// Load-more failed (or was suppressed); nothing new will
			// arrive without waiting, so stop tailing here.
			if next.LastError != "" {
				logger.Warn().Str("error", next.LastError).Msg("Stopping after failed load-more")
			}
			break
		}
	}

	final := p.Snapshot()
	logger.Info().
		Int("items", len(final.Items)).
		Int("pages", final.Cursor).
		Bool("exhausted", final.Exhausted).
		Msg("Done")

	if final.LastError != "" {
		fmt.Fprintf(os.Stderr, "note: %s\n", final.LastError)
	}

	return nil
}

// printNew prints items not yet shown and returns the new printed count.
func printNew(snap pager.Snapshot, printed int) int {
	for _, item := range snap.Items[printed:] {
		ts := ""
		if !item.PublishedAt.IsZero() {
			ts = item.PublishedAt.Format(time.DateOnly) + "  "
		}
		fmt.Printf("%s%-10s %s\n", ts, item.Section, item.Title)
	}
	return len(snap.Items)
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}
