// Package session keeps per-visitor navigation state behind a cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/louisbranch/sitenav/internal/navigation/menu"
	"github.com/louisbranch/sitenav/internal/navigation/topic"
	sitestorage "github.com/louisbranch/sitenav/internal/services/site/storage"
)

// CookieName is the canonical site session cookie name.
const CookieName = "site_session"

type contextKey struct{}

var _ menu.Session = Session{}

// Session is one visitor's attribute set.
type Session struct {
	ID    string
	store sitestorage.SessionStore
}

// New binds a session id to a store.
func New(store sitestorage.SessionStore, id string) Session {
	return Session{ID: strings.TrimSpace(id), store: store}
}

// SelectedTopic loads the topic stored under key.
func (s Session) SelectedTopic(ctx context.Context, key string) (topic.Topic, bool, error) {
	if s.store == nil || s.ID == "" {
		return topic.Topic{}, false, nil
	}
	payload, found, err := s.store.LoadSessionAttribute(ctx, s.ID, key)
	if err != nil || !found {
		return topic.Topic{}, false, err
	}
	var selected topic.Topic
	if err := json.Unmarshal(payload, &selected); err != nil {
		return topic.Topic{}, false, fmt.Errorf("decode session attribute %s: %w", key, err)
	}
	return selected, true, nil
}

// StoreSelectedTopic stores selected under key.
func (s Session) StoreSelectedTopic(ctx context.Context, key string, selected topic.Topic) error {
	if s.store == nil || s.ID == "" {
		return errors.New("session is not bound to a store")
	}
	payload, err := json.Marshal(selected)
	if err != nil {
		return fmt.Errorf("encode session attribute %s: %w", key, err)
	}
	return s.store.SaveSessionAttribute(ctx, s.ID, key, payload)
}

// FromContext returns the session attached by Middleware.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// Middleware reads the session cookie, issuing a new id when it is missing,
// and attaches the session to the request context.
func Middleware(store sitestorage.SessionStore, path string) func(http.Handler) http.Handler {
	if strings.TrimSpace(path) == "" {
		path = "/"
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := readCookie(r)
			if !ok {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    id,
					Path:     path,
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), New(store, id))))
		})
	}
}

func readCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if _, err := uuid.Parse(value); err != nil {
		return "", false
	}
	return value, true
}
