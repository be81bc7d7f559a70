// Package topic defines the topic tree snapshot consumed by navigation
// renderers and the collaborator contracts that supply it.
package topic

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound is returned by providers when a topic id is unknown.
var ErrNotFound = errors.New("topic not found")

// Topic is one node of the content hierarchy.
type Topic struct {
	ID          int    `json:"id"`
	ParentID    int    `json:"parent_id"`
	Level       int    `json:"level"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// FullPath lists ancestor ids including the topic itself, e.g. "/0/3/12/".
	FullPath string `json:"full_path"`
	Rank     int    `json:"rank"`
}

// PathIDs returns the non-empty id tokens of FullPath in root-to-leaf order.
func (t Topic) PathIDs() []string {
	parts := strings.Split(t.FullPath, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// InPath reports whether id appears as a segment of FullPath.
func (t Topic) InPath(id int) bool {
	want := strconv.Itoa(id)
	for _, part := range t.PathIDs() {
		if part == want {
			return true
		}
	}
	return false
}

// Publication is a content item attached to a topic.
type Publication struct {
	ID          int
	ComponentID string
	TopicID     int
	Title       string
}

// AxisValue is one classification value of a publication on an axis.
type AxisValue struct {
	AxisID string
	Name   string
}

// TreeProvider supplies topic snapshots.
type TreeProvider interface {
	Topic(ctx context.Context, id int) (Topic, error)
	// TreeView returns the root topic and all of its descendants.
	TreeView(ctx context.Context, rootID int) ([]Topic, error)
}

// Classifier resolves content and classification values attached to topics.
type Classifier interface {
	PublicationsByTopic(ctx context.Context, topicID int) ([]Publication, error)
	ValuesOnAxis(ctx context.Context, publication Publication, axisID string) ([]AxisValue, error)
}

// SortChildren orders siblings by rank, then id.
func SortChildren(topics []Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Rank != topics[j].Rank {
			return topics[i].Rank < topics[j].Rank
		}
		return topics[i].ID < topics[j].ID
	})
}

// Children returns the direct children of parent found in tree, sorted.
func Children(tree []Topic, parent Topic) []Topic {
	var out []Topic
	for _, candidate := range tree {
		if candidate.Level == parent.Level+1 && candidate.ParentID == parent.ID && candidate.ID != parent.ID {
			out = append(out, candidate)
		}
	}
	SortChildren(out)
	return out
}

// Find returns the topic with id from tree.
func Find(tree []Topic, id int) (Topic, bool) {
	for _, candidate := range tree {
		if candidate.ID == id {
			return candidate, true
		}
	}
	return Topic{}, false
}
