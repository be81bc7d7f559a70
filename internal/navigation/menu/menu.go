// Package menu renders a topic tree as nested navigation lists.
//
// A Menu is built once from validated Options and rendered per request.
// Rendering walks the tree depth first and writes markup straight to the
// output, one fragment per line. Selection state is read from and written to
// the request Session explicitly.
package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/sitenav/internal/navigation/topic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/louisbranch/sitenav/internal/navigation/menu"

// LinkGenerator builds the navigable URL of a topic.
type LinkGenerator interface {
	FullSemanticPath(ctx context.Context, node topic.Topic, rootID int, prefixID string) (string, error)
}

// IDOverrides maps generated element ids to configured replacements.
type IDOverrides interface {
	Value(key string) (string, bool)
}

// Dependencies are the collaborators a Menu renders with.
type Dependencies struct {
	Tree topic.TreeProvider
	// Classifier is required only when axis filtering is configured.
	Classifier topic.Classifier
	Links      LinkGenerator
	// IDOverrides is optional.
	IDOverrides IDOverrides
}

// RenderError wraps a failure that aborted a render. Markup written before
// the failure stays on the output.
type RenderError struct {
	ContainerID string
	RootID      int
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render menu %q from topic %d: %v", e.ContainerID, e.RootID, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Menu renders one configured navigation menu.
type Menu struct {
	opts Options
	deps Dependencies
}

// New validates options and dependencies.
func New(opts Options, deps Dependencies) (*Menu, error) {
	opts.normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Tree == nil {
		return nil, errors.New("menu tree provider is required")
	}
	if deps.Links == nil {
		return nil, errors.New("menu link generator is required")
	}
	if opts.filtering() && deps.Classifier == nil {
		return nil, errors.New("menu classifier is required for axis filtering")
	}
	return &Menu{opts: opts, deps: deps}, nil
}

// Options returns the menu configuration.
func (m *Menu) Options() Options {
	return m.opts
}

// Render writes the menu markup for req to w.
func (m *Menu) Render(ctx context.Context, w io.Writer, req Request) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "menu.render")
	span.SetAttributes(
		attribute.Int("menu.root_id", m.opts.RootID),
		attribute.String("menu.container_id", m.opts.ContainerID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := m.render(ctx, w, req); err != nil {
		return &RenderError{ContainerID: m.opts.ContainerID, RootID: m.opts.RootID, Err: err}
	}
	return nil
}

func (m *Menu) render(ctx context.Context, w io.Writer, req Request) error {
	root, err := m.deps.Tree.Topic(ctx, m.opts.RootID)
	if err != nil {
		return fmt.Errorf("load root topic: %w", err)
	}
	tree, err := m.deps.Tree.TreeView(ctx, m.opts.RootID)
	if err != nil {
		return fmt.Errorf("load tree view: %w", err)
	}
	if _, ok := topic.Find(tree, root.ID); !ok {
		return fmt.Errorf("tree view of topic %d: %w", root.ID, topic.ErrNotFound)
	}
	sel, err := m.resolveSelection(ctx, tree, req)
	if err != nil {
		return err
	}

	p := &pass{
		menu: m,
		req:  req,
		root: root,
		tree: tree,
		sel:  sel,
		out:  &lineWriter{w: w},
	}
	return p.browse(ctx, root, 1, !m.opts.gated())
}

// Component adapts the menu to templ. Render failures are logged and
// swallowed so the surrounding page keeps rendering.
func (m *Menu) Component(req Request) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := m.Render(ctx, w, req); err != nil {
			log.Printf("menu render failed id=%s root=%d err=%v", m.opts.ContainerID, m.opts.RootID, err)
		}
		return nil
	})
}

type pass struct {
	menu *Menu
	req  Request
	root topic.Topic
	tree []topic.Topic
	sel  selection
	out  *lineWriter
}

func (p *pass) browse(ctx context.Context, parent topic.Topic, level int, display bool) error {
	opts := p.menu.opts
	children := p.visibleChildren(parent)
	if len(children) == 0 {
		return nil
	}

	listID := opts.ContainerID
	if level > 1 {
		listID = p.menu.buildID(ParentTopicIDPrefix, parent)
	}
	p.out.line(display, "<ul id='"+templ.EscapeString(listID)+"'>")

	for i, child := range children {
		item, err := p.item(ctx, child)
		if err != nil {
			return fmt.Errorf("topic %d: %w", child.ID, err)
		}
		p.out.line(display, item)

		if opts.descends(level) {
			childDisplay := display
			if !display {
				childDisplay = p.isSubRoot(parent.ID) || p.isSubRoot(child.ID)
			}
			if err := p.browse(ctx, child, level+1, childDisplay); err != nil {
				return err
			}
		}
		p.out.line(display, "</li>")
		if opts.SeparatorClass != "" && level == 1 && i < len(children)-1 {
			p.out.line(display, "<li class='"+templ.EscapeString(opts.SeparatorClass)+"'></li>")
		}
		if p.out.err != nil {
			return p.out.err
		}
	}
	p.out.line(display, "</ul>")
	return p.out.err
}

func (p *pass) visibleChildren(parent topic.Topic) []topic.Topic {
	children := topic.Children(p.tree, parent)
	exclude := p.menu.opts.ExcludeNamed
	if exclude == "" {
		return children
	}
	out := children[:0]
	for _, child := range children {
		if !strings.EqualFold(child.Name, exclude) {
			out = append(out, child)
		}
	}
	return out
}

func (p *pass) isSubRoot(id int) bool {
	sub := p.menu.opts.SubRootID
	return sub != nil && *sub == id
}

func (p *pass) item(ctx context.Context, node topic.Topic) (string, error) {
	className, err := p.className(ctx, node)
	if err != nil {
		return "", err
	}
	relative := node.Level - p.root.Level
	href, err := p.menu.deps.Links.FullSemanticPath(ctx, node, p.menu.opts.RootID, exactAt(p.menu.opts.URLPrefixes, relative))
	if err != nil {
		return "", fmt.Errorf("generate link: %w", err)
	}

	var b strings.Builder
	b.WriteString("<li id='")
	b.WriteString(templ.EscapeString(p.menu.buildID(TopicIDPrefix, node)))
	b.WriteString("' class='")
	b.WriteString(templ.EscapeString(className))
	b.WriteString("'><a href='")
	b.WriteString(templ.EscapeString(href))
	b.WriteString("' title='")
	b.WriteString(templ.EscapeString(node.Description))
	b.WriteString("'><span>")
	b.WriteString(templ.EscapeString(node.Name))
	b.WriteString("</span></a>")
	return b.String(), nil
}

func (p *pass) className(ctx context.Context, node topic.Topic) (string, error) {
	opts := p.menu.opts
	classes := opts.ClassNames
	if opts.filtering() {
		tagged, err := p.menu.hasAxisValue(ctx, node)
		if err != nil {
			return "", err
		}
		if tagged {
			classes = opts.FilteredClassNames
		}
	}
	className := clampedAt(classes, node.Level-p.root.Level)
	if !p.sel.matches(node) {
		return className, nil
	}
	if opts.SelectedSessionKey != "" && p.req.Session != nil {
		if err := p.req.Session.StoreSelectedTopic(ctx, opts.SelectedSessionKey, node); err != nil {
			return "", fmt.Errorf("store selected topic: %w", err)
		}
	}
	return SelectedClassPrefix + className, nil
}

// hasAxisValue reports whether any publication of node carries the configured
// value on the configured axis.
func (m *Menu) hasAxisValue(ctx context.Context, node topic.Topic) (bool, error) {
	publications, err := m.deps.Classifier.PublicationsByTopic(ctx, node.ID)
	if err != nil {
		return false, fmt.Errorf("list publications: %w", err)
	}
	for _, publication := range publications {
		values, err := m.deps.Classifier.ValuesOnAxis(ctx, publication, m.opts.AxisID)
		if err != nil {
			return false, fmt.Errorf("values on axis %s: %w", m.opts.AxisID, err)
		}
		for _, value := range values {
			if value.Name == m.opts.AxisValue {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *Menu) buildID(prefix string, node topic.Topic) string {
	generic := prefix + strconv.Itoa(node.ID)
	if m.deps.IDOverrides != nil {
		if specific, ok := m.deps.IDOverrides.Value(generic); ok {
			return specific
		}
	}
	return generic
}

type lineWriter struct {
	w   io.Writer
	err error
}

func (l *lineWriter) line(display bool, fragment string) {
	if !display || l.err != nil {
		return
	}
	if _, err := io.WriteString(l.w, fragment+"\n"); err != nil {
		l.err = fmt.Errorf("write markup: %w", err)
	}
}
