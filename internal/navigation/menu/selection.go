package menu

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/sitenav/internal/navigation/topic"
)

// Session is the per-visitor state a render reads the selected topic from
// and stores newly selected topics into.
type Session interface {
	SelectedTopic(ctx context.Context, key string) (topic.Topic, bool, error)
	StoreSelectedTopic(ctx context.Context, key string, selected topic.Topic) error
}

// Params exposes request parameters; url.Values satisfies it.
type Params interface {
	Get(key string) string
}

// Request is the per-request input of a render.
type Request struct {
	Session Session
	Params  Params
}

type selection struct {
	active bool
	id     string
	// path is set in hierarchical mode.
	path topic.Topic
	hier bool
}

func (s selection) matches(node topic.Topic) bool {
	if !s.active {
		return false
	}
	if s.hier {
		return s.path.InPath(node.ID)
	}
	return s.id == strconv.Itoa(node.ID)
}

// resolveSelection reads the selected topic once per render. A configured
// session key is the only source; the request parameter is read only when no
// session key is configured.
func (m *Menu) resolveSelection(ctx context.Context, tree []topic.Topic, req Request) (selection, error) {
	var selectedID string
	switch {
	case m.opts.SelectedSessionKey != "":
		if req.Session == nil {
			return selection{}, nil
		}
		stored, ok, err := req.Session.SelectedTopic(ctx, m.opts.SelectedSessionKey)
		if err != nil {
			return selection{}, fmt.Errorf("read selected topic: %w", err)
		}
		if ok {
			selectedID = strconv.Itoa(stored.ID)
		}
	case m.opts.SelectedParam != "" && req.Params != nil:
		selectedID = strings.TrimSpace(req.Params.Get(m.opts.SelectedParam))
	}
	if selectedID == "" {
		return selection{}, nil
	}
	if !m.opts.HierarchicSelection {
		return selection{active: true, id: selectedID}, nil
	}

	id, err := strconv.Atoi(selectedID)
	if err != nil {
		return selection{}, nil
	}
	selected, ok := topic.Find(tree, id)
	if !ok {
		selected, err = m.deps.Tree.Topic(ctx, id)
		if errors.Is(err, topic.ErrNotFound) {
			return selection{}, nil
		}
		if err != nil {
			return selection{}, fmt.Errorf("load selected topic %d: %w", id, err)
		}
	}
	return selection{active: true, id: selectedID, path: selected, hier: true}, nil
}
