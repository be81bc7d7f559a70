// Package browserfilter redirects browsers outside an allow-list to a
// fallback page.
package browserfilter

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/sitenav/internal/services/site/platform/httpx"
)

// DefaultBrowserIDs is used when no allow-list is configured.
var DefaultBrowserIDs = []string{"Chrome", "Firefox", "Safari", "Opera", "MSIE 9", "MSIE 8"}

// ErrBadBrowserURLRequired reports a filter configured without a fallback page.
var ErrBadBrowserURLRequired = errors.New("browser filter requires badBrowserUrl")

var staticExtensions = []string{".jpg", ".png", ".gif", ".ico", ".css", ".js"}

type appliedKey struct{}

// Config holds the filter init parameters.
type Config struct {
	// BrowserIDs is a comma-separated list of User-Agent substrings.
	BrowserIDs    string
	BadBrowserURL string
	ContextPath   string
}

// Filter is an initialized browser filter.
type Filter struct {
	browserIDs    []string
	badBrowserURL string
	contextPath   string
}

// New reads the configuration once.
func New(cfg Config) (*Filter, error) {
	badBrowserURL := strings.TrimSpace(cfg.BadBrowserURL)
	if badBrowserURL == "" {
		return nil, ErrBadBrowserURLRequired
	}
	ids := DefaultBrowserIDs
	if strings.TrimSpace(cfg.BrowserIDs) != "" {
		ids = strings.Split(cfg.BrowserIDs, ",")
	}
	f := &Filter{
		badBrowserURL: badBrowserURL,
		contextPath:   strings.TrimRight(strings.TrimSpace(cfg.ContextPath), "/"),
	}
	for _, id := range ids {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			f.browserIDs = append(f.browserIDs, id)
		}
	}
	return f, nil
}

// FallbackURL is the redirect target for rejected browsers.
func (f *Filter) FallbackURL() string {
	return f.contextPath + f.badBrowserURL
}

// Supported reports whether userAgent matches the allow-list.
func (f *Filter) Supported(userAgent string) bool {
	agent := strings.ToLower(userAgent)
	for _, id := range f.browserIDs {
		if strings.Contains(agent, id) {
			return true
		}
	}
	return false
}

func (f *Filter) exempt(path string) bool {
	if strings.Contains(path, f.badBrowserURL) {
		return true
	}
	lower := strings.ToLower(path)
	for _, ext := range staticExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Middleware applies the filter at most once per request.
func (f *Filter) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Context().Value(appliedKey{}) != nil {
				next.ServeHTTP(w, r)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), appliedKey{}, true))

			userAgent, present := r.Header["User-Agent"]
			if !present || len(userAgent) == 0 || f.Supported(userAgent[0]) || f.exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			log.Printf("unsupported browser user_agent=%q path=%s request_id=%s", userAgent[0], r.URL.Path, httpx.RequestIDOf(r))
			httpx.WriteRedirect(w, r, f.FallbackURL())
		})
	}
}
