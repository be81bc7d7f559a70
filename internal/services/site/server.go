// Package site serves the YAML-declared pages with their navigation menus,
// footer and browser filter.
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/louisbranch/sitenav/internal/navigation/link"
	"github.com/louisbranch/sitenav/internal/platform/config"
	"github.com/louisbranch/sitenav/internal/platform/i18n/catalog"
	"github.com/louisbranch/sitenav/internal/platform/timeouts"
	"github.com/louisbranch/sitenav/internal/services/site/pages"
	"github.com/louisbranch/sitenav/internal/services/site/platform/browserfilter"
	"github.com/louisbranch/sitenav/internal/services/site/platform/httpx"
	"github.com/louisbranch/sitenav/internal/services/site/session"
	sitestorage "github.com/louisbranch/sitenav/internal/services/site/storage"
)

// DefaultPagesFile is the page declaration file read from Config.Content.
const DefaultPagesFile = "site.yaml"

// Website property keys read at startup.
const (
	PropertyLanguages     = "site.languages"
	PropertyBundleFamily  = "site.bundles"
	PropertyBrowserIDs    = "browser.ids"
	PropertyBadBrowserURL = "browser.badBrowserUrl"
	PropertyIconAngleBas  = "footer.iconAngleBas"
)

// Config defines the inputs for the site server.
type Config struct {
	HTTPAddr    string
	ContextPath string
	// Content holds website.properties, the message bundles and the page
	// declarations.
	Content   fs.FS
	PagesFile string
	// Store is owned by the server once NewServer succeeds.
	Store sitestorage.Store
	// Browser overrides the browser.* website properties when set.
	Browser browserfilter.Config
}

// Server hosts the site pages.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	handler    http.Handler
	store      sitestorage.Store
}

// NewServer loads configuration, pages and bundles and builds the handler chain.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Content == nil {
		return nil, errors.New("site content filesystem is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("site store is required")
	}
	contextPath := normalizeContextPath(cfg.ContextPath)

	props, err := config.LoadProperties(cfg.Content, config.WebsiteProperties)
	if err != nil {
		return nil, err
	}
	bundles, err := catalog.New(cfg.Content, props.ValueOr(PropertyBundleFamily, catalog.DefaultFamily))
	if err != nil {
		return nil, err
	}
	langs, err := newLocales(props.ValueOr(PropertyLanguages, "en"))
	if err != nil {
		return nil, err
	}
	pagesFile := strings.TrimSpace(cfg.PagesFile)
	if pagesFile == "" {
		pagesFile = DefaultPagesFile
	}
	declared, err := pages.Load(cfg.Content, pagesFile)
	if err != nil {
		return nil, err
	}

	browserCfg := cfg.Browser
	if strings.TrimSpace(browserCfg.BrowserIDs) == "" {
		browserCfg.BrowserIDs = props.ValueOr(PropertyBrowserIDs, "")
	}
	if strings.TrimSpace(browserCfg.BadBrowserURL) == "" {
		browserCfg.BadBrowserURL = props.ValueOr(PropertyBadBrowserURL, "")
	}
	browserCfg.ContextPath = contextPath
	filter, err := browserfilter.New(browserCfg)
	if err != nil {
		return nil, err
	}

	links, err := link.NewGenerator(cfg.Store, contextPath)
	if err != nil {
		return nil, err
	}
	h, err := newHandler(handlerConfig{
		contextPath:   contextPath,
		pages:         declared,
		store:         cfg.Store,
		links:         links,
		overrides:     props,
		bundles:       bundles,
		locales:       langs,
		badBrowserURL: browserCfg.BadBrowserURL,
		iconAngleBas:  props.ValueOr(PropertyIconAngleBas, ""),
	})
	if err != nil {
		return nil, err
	}

	cookiePath := contextPath
	if cookiePath == "" {
		cookiePath = "/"
	}
	chain := httpx.Chain(h,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		filter.Middleware(),
		session.Middleware(cfg.Store, cookiePath),
		httpx.AllowMethods(http.MethodGet, http.MethodHead),
	)

	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	return &Server{
		httpAddr: httpAddr,
		handler:  chain,
		store:    cfg.Store,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           chain,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe runs the HTTP server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("site server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	listener, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpAddr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	serveErr := make(chan error, 1)
	log.Printf("site listening on %s", listener.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the store.
func (s *Server) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close site store: %v", err)
	}
}

func normalizeContextPath(value string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value != "" && !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}
