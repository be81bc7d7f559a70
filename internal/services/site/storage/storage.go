// Package storage defines the site persistence contracts.
package storage

import (
	"context"

	"github.com/louisbranch/sitenav/internal/navigation/topic"
)

// TopicStore persists the topic tree and the content attached to it.
type TopicStore interface {
	topic.TreeProvider
	topic.Classifier
	PutTopic(ctx context.Context, node topic.Topic) error
	PutPublication(ctx context.Context, publication topic.Publication) error
	PutAxisValue(ctx context.Context, publication topic.Publication, value topic.AxisValue) error
}

// SessionStore persists opaque session attribute payloads.
type SessionStore interface {
	LoadSessionAttribute(ctx context.Context, sessionID, name string) ([]byte, bool, error)
	SaveSessionAttribute(ctx context.Context, sessionID, name string, payload []byte) error
}

// Store is the full site persistence contract.
type Store interface {
	TopicStore
	SessionStore
	Close() error
}
