// Package seed loads a YAML topic tree into the site store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/louisbranch/sitenav/internal/navigation/topic"
	"gopkg.in/yaml.v3"
)

// RootLevel is the level assigned to top-level seed topics.
const RootLevel = 1

// NoParent is the parent id stored for top-level topics.
const NoParent = -1

// Document is a seed file.
type Document struct {
	ComponentID string      `yaml:"component_id"`
	Topics      []TopicNode `yaml:"topics"`
}

// TopicNode is one topic with its nested children.
type TopicNode struct {
	ID           int               `yaml:"id"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Rank         int               `yaml:"rank"`
	Publications []PublicationNode `yaml:"publications"`
	Children     []TopicNode       `yaml:"children"`
}

// PublicationNode is a publication with classification values keyed by axis id.
type PublicationNode struct {
	ID    int                 `yaml:"id"`
	Title string              `yaml:"title"`
	Axes  map[string][]string `yaml:"axes"`
}

// Writer receives flattened seed records.
type Writer interface {
	PutTopic(ctx context.Context, node topic.Topic) error
	PutPublication(ctx context.Context, publication topic.Publication) error
	PutAxisValue(ctx context.Context, publication topic.Publication, value topic.AxisValue) error
}

// Parse decodes a seed document.
func Parse(r io.Reader) (Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, errors.New("seed document is empty")
		}
		return Document{}, fmt.Errorf("decode seed: %w", err)
	}
	if strings.TrimSpace(doc.ComponentID) == "" {
		return Document{}, errors.New("seed component_id is required")
	}
	return doc, nil
}

// Flatten computes level, parent and full path for every topic, depth first.
func (d Document) Flatten() ([]topic.Topic, error) {
	seen := map[int]bool{}
	var out []topic.Topic
	var walk func(nodes []TopicNode, parent *topic.Topic) error
	walk = func(nodes []TopicNode, parent *topic.Topic) error {
		for _, node := range nodes {
			if seen[node.ID] {
				return fmt.Errorf("duplicate topic id %d", node.ID)
			}
			seen[node.ID] = true
			if strings.TrimSpace(node.Name) == "" {
				return fmt.Errorf("topic %d name is required", node.ID)
			}
			flat := topic.Topic{
				ID:          node.ID,
				ParentID:    NoParent,
				Level:       RootLevel,
				Name:        strings.TrimSpace(node.Name),
				Description: strings.TrimSpace(node.Description),
				FullPath:    "/" + strconv.Itoa(node.ID) + "/",
				Rank:        node.Rank,
			}
			if parent != nil {
				flat.ParentID = parent.ID
				flat.Level = parent.Level + 1
				flat.FullPath = parent.FullPath + strconv.Itoa(node.ID) + "/"
			}
			out = append(out, flat)
			if err := walk(node.Children, &flat); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(d.Topics, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply writes the document to w and returns the number of topics written.
func Apply(ctx context.Context, w Writer, doc Document) (int, error) {
	if w == nil {
		return 0, errors.New("seed writer is required")
	}
	topics, err := doc.Flatten()
	if err != nil {
		return 0, err
	}
	for _, node := range topics {
		if err := w.PutTopic(ctx, node); err != nil {
			return 0, err
		}
	}

	var writePublications func(nodes []TopicNode) error
	writePublications = func(nodes []TopicNode) error {
		for _, node := range nodes {
			for _, entry := range node.Publications {
				publication := topic.Publication{
					ID:          entry.ID,
					ComponentID: doc.ComponentID,
					TopicID:     node.ID,
					Title:       entry.Title,
				}
				if err := w.PutPublication(ctx, publication); err != nil {
					return err
				}
				for axisID, names := range entry.Axes {
					for _, name := range names {
						if err := w.PutAxisValue(ctx, publication, topic.AxisValue{AxisID: axisID, Name: name}); err != nil {
							return err
						}
					}
				}
			}
			if err := writePublications(node.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := writePublications(doc.Topics); err != nil {
		return 0, err
	}
	return len(topics), nil
}
