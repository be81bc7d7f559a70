package site

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/sitenav/internal/navigation/footer"
	"github.com/louisbranch/sitenav/internal/navigation/menu"
	"github.com/louisbranch/sitenav/internal/navigation/topic"
	"github.com/louisbranch/sitenav/internal/platform/i18n/catalog"
	"github.com/louisbranch/sitenav/internal/services/site/pages"
	"github.com/louisbranch/sitenav/internal/services/site/session"
	sitestorage "github.com/louisbranch/sitenav/internal/services/site/storage"
	"golang.org/x/text/language"
)

// Message keys of the unsupported browser page.
const (
	KeyBadBrowserTitle = "badbrowser.title"
	KeyBadBrowserBody  = "badbrowser.body"
)

type handlerConfig struct {
	contextPath   string
	pages         []pages.Page
	store         sitestorage.TopicStore
	links         menu.LinkGenerator
	overrides     menu.IDOverrides
	bundles       *catalog.Bundles
	locales       locales
	badBrowserURL string
	iconAngleBas  string
}

type page struct {
	pages.Page
	menus []*menu.Menu
}

type handler struct {
	contextPath   string
	pages         map[string]*page
	store         sitestorage.TopicStore
	badBrowserURL string
	bundles       *catalog.Bundles
	locales       locales
	footer        footer.Footer
}

func newHandler(cfg handlerConfig) (*handler, error) {
	if cfg.bundles == nil {
		return nil, errors.New("site bundles are required")
	}
	h := &handler{
		contextPath:   cfg.contextPath,
		pages:         make(map[string]*page, len(cfg.pages)),
		store:         cfg.store,
		badBrowserURL: path.Clean("/" + strings.TrimSpace(cfg.badBrowserURL)),
		bundles:       cfg.bundles,
		locales:       cfg.locales,
		footer:        footer.Footer{IconAngleBas: cfg.iconAngleBas},
	}
	deps := menu.Dependencies{
		Tree:        cfg.store,
		Classifier:  cfg.store,
		Links:       cfg.links,
		IDOverrides: cfg.overrides,
	}
	for _, declared := range cfg.pages {
		p := &page{Page: declared}
		for idx, opts := range declared.Menus {
			m, err := menu.New(opts, deps)
			if err != nil {
				return nil, fmt.Errorf("page %s menu %d: %w", declared.Path, idx, err)
			}
			p.menus = append(p.menus, m)
		}
		h.pages[declared.Path] = p
	}
	return h, nil
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	local, ok := h.localPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if local == h.badBrowserURL {
		h.serveBadBrowser(w, r)
		return
	}
	if p, ok := h.pages[local]; ok {
		h.servePage(w, r, p, r.URL.Query())
		return
	}
	// Semantic topic links end in <prefix><id> and render on the home page
	// with that topic selected.
	if id, ok := topicID(local); ok {
		if home, ok := h.pages["/"]; ok {
			h.rememberTopic(r, home, id)
			h.servePage(w, r, home, selectTopic(r.URL.Query(), home, id))
			return
		}
	}
	http.NotFound(w, r)
}

func (h *handler) localPath(requestPath string) (string, bool) {
	if h.contextPath != "" {
		switch {
		case requestPath == h.contextPath:
			requestPath = "/"
		case strings.HasPrefix(requestPath, h.contextPath+"/"):
			requestPath = strings.TrimPrefix(requestPath, h.contextPath)
		default:
			return "", false
		}
	}
	return path.Clean("/" + requestPath), true
}

func (h *handler) servePage(w http.ResponseWriter, r *http.Request, p *page, params url.Values) {
	tag := h.locales.resolve(r)
	req := menu.Request{Params: params}
	if s, ok := session.FromContext(r.Context()); ok {
		req.Session = s
	}
	view := pageView{
		Lang:  tag.String(),
		Title: h.message(tag, p.TitleKey),
	}
	for _, m := range p.menus {
		view.Menus = append(view.Menus, m.Component(req))
	}
	if p.Footer {
		view.Footer = h.footer.Component()
	}
	templ.Handler(layout(view)).ServeHTTP(w, r)
}

func (h *handler) serveBadBrowser(w http.ResponseWriter, r *http.Request) {
	tag := h.locales.resolve(r)
	templ.Handler(layout(pageView{
		Lang:  tag.String(),
		Title: h.message(tag, KeyBadBrowserTitle),
		Body:  h.message(tag, KeyBadBrowserBody),
	})).ServeHTTP(w, r)
}

// message falls back to the key itself when the bundle cannot answer.
func (h *handler) message(tag language.Tag, key string) string {
	value, err := h.bundles.Message(tag.String(), key)
	if err != nil {
		log.Printf("site message lookup failed lang=%s key=%s err=%v", tag, key, err)
		return key
	}
	return value
}

// rememberTopic stores the linked topic in the session of every menu that
// reads its selection from the session, so the link wins over older state.
func (h *handler) rememberTopic(r *http.Request, p *page, rawID string) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		return
	}
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return
	}
	var selected *topic.Topic
	for _, m := range p.menus {
		key := m.Options().SelectedSessionKey
		if key == "" {
			continue
		}
		if selected == nil {
			node, err := h.store.Topic(r.Context(), id)
			if err != nil {
				if !errors.Is(err, topic.ErrNotFound) {
					log.Printf("site topic lookup failed id=%d err=%v", id, err)
				}
				return
			}
			selected = &node
		}
		if err := s.StoreSelectedTopic(r.Context(), key, *selected); err != nil {
			log.Printf("site session store failed key=%s err=%v", key, err)
		}
	}
}

// topicID extracts the trailing digits of the last path segment.
func topicID(local string) (string, bool) {
	segment := path.Base(local)
	end := len(segment)
	start := end
	for start > 0 && segment[start-1] >= '0' && segment[start-1] <= '9' {
		start--
	}
	if start == end {
		return "", false
	}
	return segment[start:end], true
}

func selectTopic(query url.Values, p *page, id string) url.Values {
	params := url.Values{}
	for key, values := range query {
		params[key] = append([]string(nil), values...)
	}
	for _, m := range p.menus {
		if name := m.Options().SelectedParam; name != "" {
			params.Set(name, id)
		}
	}
	return params
}
