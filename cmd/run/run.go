// Package run implements the "run" command: it executes a declarative
// pipeline definition and exports the resulting leaf records.
package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Database drivers for the sql cache backends.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jonesrussell/goscrape/internal/cache"
	"github.com/jonesrussell/goscrape/internal/config"
	"github.com/jonesrussell/goscrape/internal/declarative"
	"github.com/jonesrussell/goscrape/internal/export"
	"github.com/jonesrussell/goscrape/internal/fetch"
	"github.com/jonesrussell/goscrape/internal/logger"
	"github.com/jonesrussell/goscrape/internal/metrics"
	"github.com/jonesrussell/goscrape/internal/scrape"
)

// Command returns the run command.
func Command() *cobra.Command {
	var (
		pipelineFile string
		outputFile   string
		update       bool
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a declarative pipeline and export its leaf records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			if update {
				cfg.Scraper.Update = true
			}
			if concurrency > 0 {
				cfg.Scraper.Concurrency = concurrency
			}

			return runPipeline(cmd.Context(), cfg, pipelineFile, outputFile)
		},
	}

	cmd.Flags().StringVarP(&pipelineFile, "pipeline", "p", "pipeline.yaml", "pipeline definition file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "CSV output file (default: table on stdout)")
	cmd.Flags().BoolVar(&update, "update", false, "force refresh of updatable stages")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel subtree expansion (default from config)")

	return cmd
}

// runPipeline wires the engine from configuration and executes one run.
func runPipeline(ctx context.Context, cfg *config.Config, pipelineFile, outputFile string) error {
	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	pipeline, err := loadPipeline(pipelineFile)
	if err != nil {
		return err
	}

	registry := scrape.NewRegistry()
	if registerErr := pipeline.Register(registry); registerErr != nil {
		return registerErr
	}

	htmlCache, processedCache, err := buildCaches(ctx, cfg, log)
	if err != nil {
		return err
	}

	stats := metrics.New()

	fetcher := fetch.New(fetch.Config{
		Transport: fetch.NewHTTPTransport(fetch.TransportOptions{
			Timeout:      cfg.Scraper.RequestTimeout,
			MaxRedirects: cfg.Scraper.MaxRedirects,
			UserAgent:    cfg.Scraper.UserAgent,
		}),
		Logger:      log,
		RetryDelay:  cfg.Scraper.RetryDelay,
		MaxInflight: cfg.Scraper.MaxInflight,
		Stats:       stats,
	})

	engine := scrape.New(scrape.Config{
		Registry: registry,
		Fetcher:  fetcher,
		Logger:   log,
		Stats:    stats,
	})

	leaves, err := engine.RunNamed(ctx, pipeline.SeedName(), scrape.Options{
		Scope:          pipeline.Scope,
		HTMLCache:      htmlCache,
		ProcessedCache: processedCache,
		Update:         cfg.Scraper.Update,
		Retries:        cfg.Scraper.MaxRetries,
		Concurrency:    cfg.Scraper.Concurrency,
	})
	if err != nil {
		return err
	}

	records, err := leaves.Collect()
	if err != nil {
		return err
	}

	return writeRecords(records, outputFile)
}

// loadPipeline reads a declarative pipeline definition from a YAML file.
func loadPipeline(path string) (*declarative.Pipeline, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}

	return declarative.Load(v.AllSettings())
}

// buildCaches resolves the configured cache backends. HTML and
// processed caching can be toggled independently; both persistent
// variants share one store.
func buildCaches(ctx context.Context, cfg *config.Config, log logger.Interface) (html, processed cache.Backend, err error) {
	var backend cache.Backend

	switch cfg.Cache.Backend {
	case "", "fs":
		if cfg.Cache.Dir != "" {
			if cfg.Cache.HTML {
				html = cache.NewFS(filepath.Join(cfg.Cache.Dir, "html"), log)
			}
			if cfg.Cache.Processed {
				processed = cache.NewFS(filepath.Join(cfg.Cache.Dir, "processed"), log)
			}
			return html, processed, nil
		}
		if cfg.Cache.HTML {
			html = cache.DefaultHTML()
		}
		if cfg.Cache.Processed {
			processed = cache.DefaultProcessed()
		}
		return html, processed, nil

	case "sqlite", "postgres":
		dsn := cfg.Cache.DSN
		if dsn == "" && cfg.Cache.Backend == "sqlite" {
			base, cacheErr := os.UserCacheDir()
			if cacheErr != nil {
				return nil, nil, fmt.Errorf("locate cache dir: %w", cacheErr)
			}
			dsn = filepath.Join(base, "goscrape", "cache.db")
		}

		db, connErr := sqlx.ConnectContext(ctx, cfg.Cache.Backend, dsn)
		if connErr != nil {
			return nil, nil, fmt.Errorf("connect %s cache: %w", cfg.Cache.Backend, connErr)
		}

		backend, err = cache.NewSQL(ctx, db, log)
		if err != nil {
			return nil, nil, err
		}

		if cfg.Cache.HTML {
			html = backend
		}
		if cfg.Cache.Processed {
			processed = backend
		}
		return html, processed, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// writeRecords exports the leaf records as CSV or renders them to
// stdout.
func writeRecords(records []scrape.Context, outputFile string) error {
	if outputFile == "" {
		return export.WriteTable(os.Stdout, records, nil)
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	return export.WriteCSV(f, records, nil)
}
