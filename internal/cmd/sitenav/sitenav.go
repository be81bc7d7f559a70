// Package sitenav parses site command configuration and launches the server.
package sitenav

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	entrypoint "github.com/louisbranch/sitenav/internal/platform/cmd"
	"github.com/louisbranch/sitenav/internal/platform/timeouts"
	"github.com/louisbranch/sitenav/internal/services/site"
	"github.com/louisbranch/sitenav/internal/services/site/platform/browserfilter"
	"github.com/louisbranch/sitenav/internal/services/site/seed"
	"github.com/louisbranch/sitenav/internal/services/site/storage/sqlite"
)

// Config holds the site command configuration.
type Config struct {
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:"localhost:8090"`
	ContextPath   string `env:"CONTEXT_PATH"`
	ContentDir    string `env:"CONTENT_DIR" envDefault:"site"`
	PagesFile     string `env:"PAGES_FILE" envDefault:"site.yaml"`
	DBPath        string `env:"DB_PATH" envDefault:"data/sitenav.db"`
	SeedFile      string `env:"SEED_FILE"`
	BrowserIDs    string `env:"BROWSER_IDS"`
	BadBrowserURL string `env:"BAD_BROWSER_URL"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.ContextPath, "context-path", cfg.ContextPath, "URL prefix the site is mounted under")
	fs.StringVar(&cfg.ContentDir, "content", cfg.ContentDir, "directory holding website.properties, bundles and pages")
	fs.StringVar(&cfg.PagesFile, "pages", cfg.PagesFile, "page declarations file inside the content directory")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "topic tree YAML loaded at startup")
	fs.StringVar(&cfg.BrowserIDs, "browser-ids", cfg.BrowserIDs, "comma-separated supported User-Agent tokens")
	fs.StringVar(&cfg.BadBrowserURL, "bad-browser-url", cfg.BadBrowserURL, "page unsupported browsers are sent to")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.ContentDir) == "" {
		return Config{}, fmt.Errorf("content directory is required")
	}
	return cfg, nil
}

// Run starts the site server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSite, func(ctx context.Context) error {
		server, err := newServer(ctx, cfg)
		if err != nil {
			return err
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve site: %w", err)
		}
		return nil
	})
}

func newServer(ctx context.Context, cfg Config) (*site.Server, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open site store: %w", err)
	}
	if strings.TrimSpace(cfg.SeedFile) != "" {
		if err := applySeed(ctx, store, cfg.SeedFile); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	server, err := site.NewServer(site.Config{
		HTTPAddr:    cfg.HTTPAddr,
		ContextPath: cfg.ContextPath,
		Content:     os.DirFS(cfg.ContentDir),
		PagesFile:   cfg.PagesFile,
		Store:       store,
		Browser: browserfilter.Config{
			BrowserIDs:    cfg.BrowserIDs,
			BadBrowserURL: cfg.BadBrowserURL,
		},
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init site server: %w", err)
	}
	return server, nil
}

func applySeed(ctx context.Context, w seed.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	doc, err := seed.Parse(f)
	if err != nil {
		return err
	}
	seedCtx, cancel := context.WithTimeout(ctx, timeouts.Seed)
	defer cancel()
	count, err := seed.Apply(seedCtx, w, doc)
	if err != nil {
		return fmt.Errorf("apply seed %s: %w", path, err)
	}
	log.Printf("seed applied file=%s topics=%d", path, count)
	return nil
}
