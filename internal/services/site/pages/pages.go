// Package pages loads the YAML page declarations served by the site.
package pages

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/louisbranch/sitenav/internal/navigation/menu"
	"gopkg.in/yaml.v3"
)

// Page is a validated page declaration.
type Page struct {
	Path     string
	TitleKey string
	Menus    []menu.Options
	Footer   bool
}

type document struct {
	Pages []pageDecl `yaml:"pages"`
}

type pageDecl struct {
	Path     string              `yaml:"path"`
	TitleKey string              `yaml:"title_key"`
	Footer   bool                `yaml:"footer"`
	Menus    []map[string]string `yaml:"menus"`
}

// Load reads and validates the declarations in name.
func Load(fsys fs.FS, name string) ([]Page, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open pages %s: %w", name, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates page declarations. Every menu is checked
// through menu.ParseAttributes so misconfiguration fails at startup.
func Parse(r io.Reader) ([]Page, error) {
	var doc document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("pages document is empty")
		}
		return nil, fmt.Errorf("decode pages: %w", err)
	}

	seen := map[string]bool{}
	out := make([]Page, 0, len(doc.Pages))
	for idx, decl := range doc.Pages {
		p, err := decl.page()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", idx, err)
		}
		if seen[p.Path] {
			return nil, fmt.Errorf("page %d: duplicate path %s", idx, p.Path)
		}
		seen[p.Path] = true
		out = append(out, p)
	}
	return out, nil
}

func (d pageDecl) page() (Page, error) {
	p := strings.TrimSpace(d.Path)
	if p == "" || !strings.HasPrefix(p, "/") {
		return Page{}, fmt.Errorf("path %q must start with /", d.Path)
	}
	p = path.Clean(p)
	titleKey := strings.TrimSpace(d.TitleKey)
	if titleKey == "" {
		return Page{}, fmt.Errorf("path %s: title_key is required", p)
	}
	page := Page{Path: p, TitleKey: titleKey, Footer: d.Footer}
	for idx, attrs := range d.Menus {
		opts, err := menu.ParseAttributes(attrs)
		if err != nil {
			return Page{}, fmt.Errorf("path %s menu %d: %w", p, idx, err)
		}
		page.Menus = append(page.Menus, opts)
	}
	return page, nil
}
