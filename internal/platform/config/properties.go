package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
)

// WebsiteProperties is the default website configuration resource name.
const WebsiteProperties = "website.properties"

// Properties is a read-only key/value snapshot of a properties resource.
// Keys are matched exactly; "${...}" references are kept literally.
type Properties struct {
	p *properties.Properties
}

// LoadProperties reads name from fsys. A missing or unreadable resource is
// an error the caller should treat as fatal.
func LoadProperties(fsys fs.FS, name string) (*Properties, error) {
	if fsys == nil {
		return nil, errors.New("properties filesystem is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = WebsiteProperties
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read properties %s: %w", name, err)
	}
	return ParseProperties(data)
}

// ParseProperties decodes UTF-8 properties-formatted data.
func ParseProperties(data []byte) (*Properties, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	return &Properties{p: p}, nil
}

// Value returns the value stored for key.
func (p *Properties) Value(key string) (string, bool) {
	if p == nil || p.p == nil {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	return p.p.Get(key)
}

// IntValue returns the value stored for key as an int.
func (p *Properties) IntValue(key string) (int, error) {
	raw, ok := p.Value(key)
	if !ok {
		return 0, fmt.Errorf("property %s is not set", key)
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("property %s: %w", key, err)
	}
	return value, nil
}

// ValueOr returns the value stored for key, or fallback.
func (p *Properties) ValueOr(key, fallback string) string {
	if value, ok := p.Value(key); ok {
		return value
	}
	return fallback
}

// Keys returns every key in file order.
func (p *Properties) Keys() []string {
	if p == nil || p.p == nil {
		return nil
	}
	return p.p.Keys()
}
