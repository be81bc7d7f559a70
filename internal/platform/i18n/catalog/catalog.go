// Package catalog serves per-locale message bundles loaded from properties
// files of one bundle family, e.g. resources.properties,
// resources_fr.properties and resources_fr_FR.properties.
//
// Locale bundles are loaded on first use and cached for the process
// lifetime. Concurrent first loads of one locale share a single read.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	textcatalog "golang.org/x/text/message/catalog"

	"github.com/louisbranch/sitenav/internal/platform/config"
)

// DefaultFamily is the bundle family used by the website.
const DefaultFamily = "resources"

// ErrMissingKey is returned when no bundle in a locale chain defines a key.
var ErrMissingKey = errors.New("missing resource key")

// ErrMissingBundle is returned when a locale chain has no bundle file at all.
var ErrMissingBundle = errors.New("missing resource bundle")

// Bundle is the resolved message set of one locale: its own keys merged over
// its parents' keys.
type Bundle struct {
	Tag      language.Tag
	messages map[string]string
}

// Message returns the value of key.
func (b *Bundle) Message(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	value, ok := b.messages[strings.TrimSpace(key)]
	return value, ok
}

// Keys returns the sorted keys of the bundle.
func (b *Bundle) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b.messages))
	for key := range b.messages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Bundles loads and caches the locale bundles of one family.
type Bundles struct {
	fsys   fs.FS
	family string

	cache sync.Map // locale suffix -> *Bundle
	group singleflight.Group
}

// New returns a bundle family reader over fsys.
func New(fsys fs.FS, family string) (*Bundles, error) {
	if fsys == nil {
		return nil, errors.New("bundle filesystem is required")
	}
	family = strings.TrimSpace(family)
	if family == "" {
		family = DefaultFamily
	}
	return &Bundles{fsys: fsys, family: family}, nil
}

// Bundle returns the bundle for lang ("fr", "fr-FR" or "fr_FR"). The empty
// string selects the base bundle.
func (b *Bundles) Bundle(lang string) (*Bundle, error) {
	tag, suffix, err := parseLocale(lang)
	if err != nil {
		return nil, err
	}
	if cached, ok := b.cache.Load(suffix); ok {
		return cached.(*Bundle), nil
	}
	loaded, err, _ := b.group.Do(suffix, func() (any, error) {
		if cached, ok := b.cache.Load(suffix); ok {
			return cached, nil
		}
		bundle, err := b.load(tag, suffix)
		if err != nil {
			return nil, err
		}
		b.cache.Store(suffix, bundle)
		return bundle, nil
	})
	if err != nil {
		return nil, err
	}
	return loaded.(*Bundle), nil
}

// Message returns the value of key in the bundle for lang.
func (b *Bundles) Message(lang, key string) (string, error) {
	bundle, err := b.Bundle(lang)
	if err != nil {
		return "", err
	}
	value, ok := bundle.Message(key)
	if !ok {
		return "", fmt.Errorf("%w: %s (locale %q)", ErrMissingKey, key, lang)
	}
	return value, nil
}

// Printer returns an x/text printer whose catalog holds the bundle for lang.
func (b *Bundles) Printer(lang string) (*message.Printer, error) {
	bundle, err := b.Bundle(lang)
	if err != nil {
		return nil, err
	}
	builder := textcatalog.NewBuilder(textcatalog.Fallback(bundle.Tag))
	for key, value := range bundle.messages {
		if err := builder.SetString(bundle.Tag, key, value); err != nil {
			return nil, fmt.Errorf("register message %s: %w", key, err)
		}
	}
	return message.NewPrinter(bundle.Tag, message.Catalog(builder)), nil
}

// load merges the locale chain from the base bundle down to suffix.
func (b *Bundles) load(tag language.Tag, suffix string) (*Bundle, error) {
	merged := map[string]string{}
	found := false
	for _, candidate := range chain(suffix) {
		name := b.family + ".properties"
		if candidate != "" {
			name = b.family + "_" + candidate + ".properties"
		}
		props, err := config.LoadProperties(b.fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load bundle %s: %w", name, err)
		}
		found = true
		for _, key := range props.Keys() {
			value, _ := props.Value(key)
			merged[key] = value
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s for locale %q", ErrMissingBundle, b.family, suffix)
	}
	return &Bundle{Tag: tag, messages: merged}, nil
}

// chain lists bundle suffixes from the most general to the most specific:
// "", "fr", "fr_FR".
func chain(suffix string) []string {
	out := []string{""}
	if suffix == "" {
		return out
	}
	parts := strings.Split(suffix, "_")
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "_"))
	}
	return out
}

func parseLocale(lang string) (language.Tag, string, error) {
	lang = strings.TrimSpace(strings.ReplaceAll(lang, "_", "-"))
	if lang == "" {
		return language.Und, "", nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.Und, "", fmt.Errorf("parse locale %q: %w", lang, err)
	}
	base, _ := tag.Base()
	suffix := base.String()
	if region, confidence := tag.Region(); confidence == language.Exact {
		suffix += "_" + region.String()
	}
	return tag, suffix, nil
}
