package menu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"slices"
	"strings"
	"testing"

	"github.com/louisbranch/sitenav/internal/navigation/topic"
	"golang.org/x/net/html"
)

type fakeTree struct {
	topics  []topic.Topic
	failOn  int
	treeErr error
}

func (f *fakeTree) Topic(_ context.Context, id int) (topic.Topic, error) {
	if f.failOn != 0 && id == f.failOn {
		return topic.Topic{}, errors.New("provider down")
	}
	for _, node := range f.topics {
		if node.ID == id {
			return node, nil
		}
	}
	return topic.Topic{}, topic.ErrNotFound
}

func (f *fakeTree) TreeView(_ context.Context, rootID int) ([]topic.Topic, error) {
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	root, err := f.Topic(context.Background(), rootID)
	if err != nil {
		return nil, err
	}
	var out []topic.Topic
	for _, node := range f.topics {
		if node.InPath(root.ID) {
			out = append(out, node)
		}
	}
	return out, nil
}

type fakeLinks struct {
	failOn int
}

func (f fakeLinks) FullSemanticPath(_ context.Context, node topic.Topic, _ int, prefixID string) (string, error) {
	if f.failOn != 0 && node.ID == f.failOn {
		return "", errors.New("link service down")
	}
	return fmt.Sprintf("/t/%s%d", prefixID, node.ID), nil
}

type fakeClassifier struct {
	// values maps topic id to axis value names of its single publication.
	values map[int][]string
	calls  int
}

func (f *fakeClassifier) PublicationsByTopic(_ context.Context, topicID int) ([]topic.Publication, error) {
	if _, ok := f.values[topicID]; !ok {
		return nil, nil
	}
	return []topic.Publication{{ID: topicID * 100, TopicID: topicID, ComponentID: "kmelia1"}}, nil
}

func (f *fakeClassifier) ValuesOnAxis(_ context.Context, publication topic.Publication, axisID string) ([]topic.AxisValue, error) {
	f.calls++
	var out []topic.AxisValue
	for _, name := range f.values[publication.TopicID] {
		out = append(out, topic.AxisValue{AxisID: axisID, Name: name})
	}
	return out, nil
}

type memorySession struct {
	values map[string]topic.Topic
	stored []int
}

func newMemorySession() *memorySession {
	return &memorySession{values: map[string]topic.Topic{}}
}

func (s *memorySession) SelectedTopic(_ context.Context, key string) (topic.Topic, bool, error) {
	node, ok := s.values[key]
	return node, ok, nil
}

func (s *memorySession) StoreSelectedTopic(_ context.Context, key string, selected topic.Topic) error {
	s.values[key] = selected
	s.stored = append(s.stored, selected.ID)
	return nil
}

type mapOverrides map[string]string

func (m mapOverrides) Value(key string) (string, bool) {
	value, ok := m[key]
	return value, ok
}

type failingWriter struct {
	after int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n >= w.after {
		return 0, errors.New("client disconnected")
	}
	w.n++
	return len(p), nil
}

func sampleTree() *fakeTree {
	return &fakeTree{topics: []topic.Topic{
		{ID: 0, ParentID: -1, Level: 1, Name: "Root", FullPath: "/0/"},
		{ID: 1, ParentID: 0, Level: 2, Name: "News", Description: "Latest & greatest", FullPath: "/0/1/", Rank: 1},
		{ID: 2, ParentID: 0, Level: 2, Name: "About", FullPath: "/0/2/", Rank: 2},
		{ID: 3, ParentID: 1, Level: 3, Name: "Sport", FullPath: "/0/1/3/", Rank: 1},
		{ID: 4, ParentID: 1, Level: 3, Name: "Archive", FullPath: "/0/1/4/", Rank: 2},
		{ID: 5, ParentID: 3, Level: 4, Name: "Football", FullPath: "/0/1/3/5/", Rank: 1},
	}}
}

func baseOptions() Options {
	opts := DefaultOptions()
	opts.RootID = 0
	opts.ContainerID = "menu"
	opts.ClassNames = []string{"l1", "l2"}
	return opts
}

func depth(n int) *int { return &n }

func mustNew(t *testing.T, opts Options, deps Dependencies) *Menu {
	t.Helper()
	if deps.Tree == nil {
		deps.Tree = sampleTree()
	}
	if deps.Links == nil {
		deps.Links = fakeLinks{}
	}
	m, err := New(opts, deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func render(t *testing.T, m *Menu, req Request) string {
	t.Helper()
	var b bytes.Buffer
	if err := m.Render(context.Background(), &b, req); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return b.String()
}

func TestRenderWritesNestedMarkup(t *testing.T) {
	t.Parallel()

	got := render(t, mustNew(t, baseOptions(), Dependencies{}), Request{})
	want := strings.Join([]string{
		"<ul id='menu'>",
		"<li id='topicId-1' class='l1'><a href='/t/1' title='Latest &amp; greatest'><span>News</span></a>",
		"<ul id='parentTopicId-1'>",
		"<li id='topicId-3' class='l2'><a href='/t/3' title=''><span>Sport</span></a>",
		"<ul id='parentTopicId-3'>",
		"<li id='topicId-5' class='l2'><a href='/t/5' title=''><span>Football</span></a>",
		"</li>",
		"</ul>",
		"</li>",
		"<li id='topicId-4' class='l2'><a href='/t/4' title=''><span>Archive</span></a>",
		"</li>",
		"</ul>",
		"</li>",
		"<li id='topicId-2' class='l1'><a href='/t/2' title=''><span>About</span></a>",
		"</li>",
		"</ul>",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", got, want)
	}
	assertWellFormed(t, got)
}

func TestRenderLeafRootWritesNothing(t *testing.T) {
	t.Parallel()

	opts := baseOptions()
	opts.RootID = 5
	if got := render(t, mustNew(t, opts, Dependencies{}), Request{}); got != "" {
		t.Fatalf("Render() = %q, want empty", got)
	}
}

func TestRenderMaxDepthLimitsLevels(t *testing.T) {
	t.Parallel()

	opts := baseOptions()
	opts.MaxDepth = depth(2)
	got := render(t, mustNew(t, opts, Dependencies{}), Request{})
	for _, id := range []string{"topicId-1", "topicId-2", "topicId-3", "topicId-4"} {
		if !strings.Contains(got, "id='"+id+"'") {
			t.Fatalf("expected %s in output:\n%s", id, got)
		}
	}
	if strings.Contains(got, "topicId-5") {
		t.Fatalf("expected depth-3 topic to be cut:\n%s", got)
	}
}

func TestRenderExplicitZeroDepthKeepsTopLevelOnly(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"0", "1"} {
		opts, err := ParseAttributes(map[string]string{
			"idTopicRoot":         "0",
			"id":                  "menu",
			"classNamesHierarchy": "l1,l2",
			"maxDeepLevel":        raw,
		})
		if err != nil {
			t.Fatalf("ParseAttributes(maxDeepLevel=%s) error = %v", raw, err)
		}
		got := render(t, mustNew(t, opts, Dependencies{}), Request{})
		if !strings.Contains(got, "id='topicId-1'") || !strings.Contains(got, "id='topicId-2'") {
			t.Fatalf("maxDeepLevel=%s: expected level-1 items:\n%s", raw, got)
		}
		if strings.Contains(got, "parentTopicId-1") || strings.Contains(got, "topicId-3") {
			t.Fatalf("maxDeepLevel=%s: expected no nested levels:\n%s", raw, got)
		}
	}
}

func TestRenderUnsetDepthIsUnlimited(t *testing.T) {
	t.Parallel()

	got := render(t, mustNew(t, baseOptions(), Dependencies{}), Request{})
	if !strings.Contains(got, "id='topicId-5'") {
		t.Fatalf("expected the deepest topic without a depth limit:\n%s", got)
	}
}

func TestRenderExcludesTopicsCaseInsensitively(t *testing.T) {
	t.Parallel()

	tree := sampleTree()
	tree.topics = append(tree.topics, topic.Topic{ID: 6, ParentID: 4, Level: 4, Name: "Old", FullPath: "/0/1/4/6/"})
	opts := baseOptions()
	opts.ExcludeNamed = "archive"
	got := render(t, mustNew(t, opts, Dependencies{Tree: tree}), Request{})
	if strings.Contains(got, "Archive") || strings.Contains(got, "topicId-6") {
		t.Fatalf("expected excluded subtree to be absent:\n%s", got)
	}
	if !strings.Contains(got, "topicId-3") {
		t.Fatalf("expected siblings to remain:\n%s", got)
	}
}

func TestRenderSelectionModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		hierarchic   bool
		selected     string
		wantSelected []string
		notSelected  []string
	}{
		{name: "hierarchic", hierarchic: true, selected: "3", wantSelected: []string{"topicId-1", "topicId-3"}, notSelected: []string{"topicId-2", "topicId-4", "topicId-5"}},
		{name: "exact", hierarchic: false, selected: "3", wantSelected: []string{"topicId-3"}, notSelected: []string{"topicId-1", "topicId-5"}},
		{name: "unknown id", hierarchic: true, selected: "99", notSelected: []string{"topicId-1", "topicId-3"}},
		{name: "malformed id", hierarchic: true, selected: "abc", notSelected: []string{"topicId-1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := baseOptions()
			opts.SelectedParam = "topic"
			opts.HierarchicSelection = tc.hierarchic
			got := render(t, mustNew(t, opts, Dependencies{}), Request{Params: url.Values{"topic": {tc.selected}}})
			for _, id := range tc.wantSelected {
				if !strings.Contains(got, "id='"+id+"' class='selected-") {
					t.Fatalf("expected %s selected:\n%s", id, got)
				}
			}
			for _, id := range tc.notSelected {
				if strings.Contains(got, "id='"+id+"' class='selected-") {
					t.Fatalf("expected %s not selected:\n%s", id, got)
				}
			}
		})
	}
}

func TestRenderSessionSelectionWinsAndIsStored(t *testing.T) {
	t.Parallel()

	session := newMemorySession()
	session.values["current"] = topic.Topic{ID: 2}
	opts := baseOptions()
	opts.SelectedParam = "topic"
	opts.SelectedSessionKey = "current"
	got := render(t, mustNew(t, opts, Dependencies{}), Request{
		Session: session,
		Params:  url.Values{"topic": {"5"}},
	})
	if !strings.Contains(got, "id='topicId-2' class='selected-l1'") {
		t.Fatalf("expected session topic selected:\n%s", got)
	}
	if strings.Contains(got, "id='topicId-5' class='selected-") {
		t.Fatalf("expected request parameter ignored when session holds a topic:\n%s", got)
	}
	if session.values["current"].Name != "About" {
		t.Fatalf("stored topic = %+v, want About", session.values["current"])
	}
}

func TestRenderEmptySessionIgnoresParam(t *testing.T) {
	t.Parallel()

	session := newMemorySession()
	opts := baseOptions()
	opts.SelectedParam = "topic"
	opts.SelectedSessionKey = "current"
	got := render(t, mustNew(t, opts, Dependencies{}), Request{
		Session: session,
		Params:  url.Values{"topic": {"5"}},
	})
	if strings.Contains(got, "class='selected-") {
		t.Fatalf("expected no selection from the parameter when a session key is configured:\n%s", got)
	}
	if len(session.stored) != 0 {
		t.Fatalf("stored = %v, want nothing", session.stored)
	}

	got = render(t, mustNew(t, opts, Dependencies{}), Request{Params: url.Values{"topic": {"5"}}})
	if strings.Contains(got, "class='selected-") {
		t.Fatalf("expected no selection without a session:\n%s", got)
	}
}

func TestRenderSessionTopicStoresPath(t *testing.T) {
	t.Parallel()

	session := newMemorySession()
	session.values["current"] = topic.Topic{ID: 5, FullPath: "/0/1/3/5/"}
	opts := baseOptions()
	opts.SelectedSessionKey = "current"
	got := render(t, mustNew(t, opts, Dependencies{}), Request{Session: session})
	if !strings.Contains(got, "id='topicId-5' class='selected-l2'") {
		t.Fatalf("expected session topic selected:\n%s", got)
	}
	wantStored := []int{1, 3, 5}
	if fmt.Sprint(session.stored) != fmt.Sprint(wantStored) {
		t.Fatalf("stored = %v, want %v", session.stored, wantStored)
	}
	if session.values["current"].ID != 5 {
		t.Fatalf("final stored topic = %d, want 5", session.values["current"].ID)
	}
}

func TestRenderParamSelectsWithoutSessionKey(t *testing.T) {
	t.Parallel()

	session := newMemorySession()
	opts := baseOptions()
	opts.SelectedParam = "topic"
	got := render(t, mustNew(t, opts, Dependencies{}), Request{
		Session: session,
		Params:  url.Values{"topic": {"5"}},
	})
	if !strings.Contains(got, "id='topicId-5' class='selected-l2'") {
		t.Fatalf("expected param topic selected:\n%s", got)
	}
	if len(session.stored) != 0 {
		t.Fatalf("stored = %v, want nothing without a session key", session.stored)
	}
}

func TestRenderSubRootEmitsOnlyItsSubtree(t *testing.T) {
	t.Parallel()

	session := newMemorySession()
	session.values["current"] = topic.Topic{ID: 2}
	sub := 1
	opts := baseOptions()
	opts.SubRootID = &sub
	opts.SelectedSessionKey = "current"
	got := render(t, mustNew(t, opts, Dependencies{}), Request{Session: session})
	want := strings.Join([]string{
		"<ul id='parentTopicId-1'>",
		"<li id='topicId-3' class='l2'><a href='/t/3' title=''><span>Sport</span></a>",
		"<ul id='parentTopicId-3'>",
		"<li id='topicId-5' class='l2'><a href='/t/5' title=''><span>Football</span></a>",
		"</li>",
		"</ul>",
		"</li>",
		"<li id='topicId-4' class='l2'><a href='/t/4' title=''><span>Archive</span></a>",
		"</li>",
		"</ul>",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", got, want)
	}
	if !slices.Contains(session.stored, 2) {
		t.Fatalf("expected hidden selected topic to still be stored, got %v", session.stored)
	}
}

func TestRenderSubRootEqualToRootShowsEverything(t *testing.T) {
	t.Parallel()

	sub := 0
	opts := baseOptions()
	opts.SubRootID = &sub
	got := render(t, mustNew(t, opts, Dependencies{}), Request{})
	if !strings.HasPrefix(got, "<ul id='menu'>") {
		t.Fatalf("expected full menu, got:\n%s", got)
	}
}

func TestRenderSeparatorBetweenTopLevelSiblings(t *testing.T) {
	t.Parallel()

	opts := baseOptions()
	opts.SeparatorClass = "sep"
	opts.MaxDepth = depth(1)
	got := render(t, mustNew(t, opts, Dependencies{}), Request{})
	want := strings.Join([]string{
		"<ul id='menu'>",
		"<li id='topicId-1' class='l1'><a href='/t/1' title='Latest &amp; greatest'><span>News</span></a>",
		"</li>",
		"<li class='sep'></li>",
		"<li id='topicId-2' class='l1'><a href='/t/2' title=''><span>About</span></a>",
		"</li>",
		"</ul>",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderFilteredClassNames(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{values: map[int][]string{
		3: {"Other", "Highlight", "Never"},
		2: {"Other"},
	}}
	opts := baseOptions()
	opts.AxisID = "7"
	opts.AxisValue = "Highlight"
	opts.FilteredClassNames = []string{"f1", "f2"}
	got := render(t, mustNew(t, opts, Dependencies{Classifier: classifier}), Request{})
	if !strings.Contains(got, "id='topicId-3' class='f2'") {
		t.Fatalf("expected filtered class on tagged topic:\n%s", got)
	}
	if !strings.Contains(got, "id='topicId-2' class='l1'") {
		t.Fatalf("expected default class on untagged topic:\n%s", got)
	}
}

func TestRenderIDOverridesAndURLPrefixes(t *testing.T) {
	t.Parallel()

	opts := baseOptions()
	opts.URLPrefixes = []string{"a-"}
	opts.MaxDepth = depth(2)
	got := render(t, mustNew(t, opts, Dependencies{IDOverrides: mapOverrides{
		"topicId-1":       "news",
		"parentTopicId-1": "news-children",
	}}), Request{})
	if !strings.Contains(got, "<li id='news' class='l1'><a href='/t/a-1'") {
		t.Fatalf("expected overridden id and level-1 prefix:\n%s", got)
	}
	if !strings.Contains(got, "<ul id='news-children'>") {
		t.Fatalf("expected overridden list id:\n%s", got)
	}
	if !strings.Contains(got, "href='/t/3'") {
		t.Fatalf("expected no prefix past the prefix list:\n%s", got)
	}
}

func TestRenderAbortsAndKeepsPartialMarkup(t *testing.T) {
	t.Parallel()

	m := mustNew(t, baseOptions(), Dependencies{Links: fakeLinks{failOn: 4}})
	var b bytes.Buffer
	err := m.Render(context.Background(), &b, Request{})
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("Render() error = %v, want RenderError", err)
	}
	if renderErr.ContainerID != "menu" {
		t.Fatalf("ContainerID = %q, want menu", renderErr.ContainerID)
	}
	got := b.String()
	if !strings.Contains(got, "topicId-5") {
		t.Fatalf("expected markup before failure to be kept:\n%s", got)
	}
	if strings.Contains(got, "topicId-2") {
		t.Fatalf("expected walk to stop after failure:\n%s", got)
	}
}

func TestRenderMissingRootFails(t *testing.T) {
	t.Parallel()

	opts := baseOptions()
	opts.RootID = 42
	err := mustNew(t, opts, Dependencies{}).Render(context.Background(), &bytes.Buffer{}, Request{})
	if !errors.Is(err, topic.ErrNotFound) {
		t.Fatalf("Render() error = %v, want ErrNotFound", err)
	}
}

func TestRenderReturnsWriteFailure(t *testing.T) {
	t.Parallel()

	err := mustNew(t, baseOptions(), Dependencies{}).Render(context.Background(), &failingWriter{after: 2}, Request{})
	if err == nil || !strings.Contains(err.Error(), "client disconnected") {
		t.Fatalf("Render() error = %v, want write failure", err)
	}
}

func TestComponentSwallowsRenderFailure(t *testing.T) {
	var logs bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(prev) })

	tree := sampleTree()
	tree.treeErr = errors.New("cache unavailable")
	m := mustNew(t, baseOptions(), Dependencies{Tree: tree})
	var b bytes.Buffer
	if err := m.Component(Request{}).Render(context.Background(), &b); err != nil {
		t.Fatalf("Component().Render() error = %v, want nil", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected no markup, got %q", b.String())
	}
	if !strings.Contains(logs.String(), "menu render failed id=menu") {
		t.Fatalf("expected failure log, got %q", logs.String())
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(baseOptions(), Dependencies{Links: fakeLinks{}}); err == nil {
		t.Fatal("expected missing tree error")
	}
	if _, err := New(baseOptions(), Dependencies{Tree: sampleTree()}); err == nil {
		t.Fatal("expected missing link generator error")
	}
	opts := baseOptions()
	opts.AxisID = "1"
	opts.AxisValue = "x"
	opts.FilteredClassNames = []string{"f"}
	if _, err := New(opts, Dependencies{Tree: sampleTree(), Links: fakeLinks{}}); err == nil {
		t.Fatal("expected missing classifier error")
	}
}

func assertWellFormed(t *testing.T, markup string) {
	t.Helper()
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	var stack []string
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if len(stack) != 0 {
				t.Fatalf("unclosed elements %v in:\n%s", stack, markup)
			}
			return
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			stack = append(stack, string(name))
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if len(stack) == 0 || stack[len(stack)-1] != string(name) {
				t.Fatalf("unexpected </%s> with open %v in:\n%s", name, stack, markup)
			}
			stack = stack[:len(stack)-1]
		}
	}
}
