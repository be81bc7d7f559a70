// Package link builds semantic topic URLs from a topic's ancestor names.
package link

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/louisbranch/sitenav/internal/navigation/topic"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Generator builds URLs of the form <base>/<ancestor slugs>/<prefix><id>.
type Generator struct {
	tree topic.TreeProvider
	base string
}

// NewGenerator returns a generator rooted at base, e.g. the application
// context path.
func NewGenerator(tree topic.TreeProvider, base string) (*Generator, error) {
	if tree == nil {
		return nil, errors.New("link tree provider is required")
	}
	return &Generator{tree: tree, base: strings.TrimRight(strings.TrimSpace(base), "/")}, nil
}

// FullSemanticPath returns the URL of node. Ancestors at or above rootID are
// not part of the path.
func (g *Generator) FullSemanticPath(ctx context.Context, node topic.Topic, rootID int, prefixID string) (string, error) {
	ids := node.PathIDs()
	root := strconv.Itoa(rootID)
	for i, id := range ids {
		if id == root {
			ids = ids[i+1:]
			break
		}
	}

	segments := make([]string, 0, len(ids)+1)
	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("topic %d path segment %q: %w", node.ID, raw, err)
		}
		name := node.Name
		if id != node.ID {
			ancestor, err := g.tree.Topic(ctx, id)
			if err != nil {
				return "", fmt.Errorf("load ancestor %d: %w", id, err)
			}
			name = ancestor.Name
		}
		if slug := Slug(name); slug != "" {
			segments = append(segments, slug)
		}
	}
	segments = append(segments, prefixID+strconv.Itoa(node.ID))
	return g.base + "/" + strings.Join(segments, "/"), nil
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug lower-cases name, folds accents and joins words with hyphens.
func Slug(name string) string {
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
