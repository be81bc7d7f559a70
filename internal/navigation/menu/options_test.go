package menu

import (
	"errors"
	"testing"
)

func TestParseAttributesDecodesTypedOptions(t *testing.T) {
	t.Parallel()

	opts, err := ParseAttributes(map[string]string{
		"idTopicRoot":                  "3",
		"idTopicSubRoot":               "12",
		"selectedTopicIdParameterName": "topic",
		"selectedTopicNameInSession":   "currentTopic",
		"id":                           "mainMenu",
		"classNamesHierarchy":          "first, second,,third",
		"classNamesHierarchyFiltered":  "hot",
		"maxDeepLevel":                 "2",
		"excludeTopicsNamed":           "Archive",
		"idAxisFiltering":              "7",
		"axisValueFilter":              "Highlight",
		"prefixIdHierarchy":            "r,s",
		"classNameSeparator":           "sep",
		"hierarchicSelection":          "false",
	})
	if err != nil {
		t.Fatalf("ParseAttributes() error = %v", err)
	}
	if opts.RootID != 3 {
		t.Fatalf("RootID = %d, want 3", opts.RootID)
	}
	if opts.SubRootID == nil || *opts.SubRootID != 12 {
		t.Fatalf("SubRootID = %v, want 12", opts.SubRootID)
	}
	if got := len(opts.ClassNames); got != 3 || opts.ClassNames[1] != "second" {
		t.Fatalf("ClassNames = %q, want trimmed three entries", opts.ClassNames)
	}
	if opts.MaxDepth == nil || *opts.MaxDepth != 2 {
		t.Fatalf("MaxDepth = %v, want 2", opts.MaxDepth)
	}
	if opts.HierarchicSelection {
		t.Fatal("HierarchicSelection = true, want false")
	}
	if len(opts.URLPrefixes) != 2 || opts.URLPrefixes[0] != "r" {
		t.Fatalf("URLPrefixes = %q", opts.URLPrefixes)
	}
	if opts.ContainerID != "mainMenu" || opts.SeparatorClass != "sep" || opts.AxisValue != "Highlight" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestParseAttributesDefaults(t *testing.T) {
	t.Parallel()

	opts, err := ParseAttributes(map[string]string{
		"idTopicRoot":         "0",
		"classNamesHierarchy": "level",
		"idTopicSubRoot":      " ",
	})
	if err != nil {
		t.Fatalf("ParseAttributes() error = %v", err)
	}
	if !opts.HierarchicSelection {
		t.Fatal("expected hierarchic selection by default")
	}
	if opts.SubRootID != nil {
		t.Fatalf("SubRootID = %v, want unset for blank attribute", *opts.SubRootID)
	}
	if opts.MaxDepth != nil {
		t.Fatalf("MaxDepth = %d, want unlimited", *opts.MaxDepth)
	}
}

func TestParseAttributesRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attrs map[string]string
	}{
		{name: "missing root", attrs: map[string]string{"classNamesHierarchy": "a"}},
		{name: "malformed root", attrs: map[string]string{"idTopicRoot": "abc", "classNamesHierarchy": "a"}},
		{name: "malformed depth", attrs: map[string]string{"idTopicRoot": "1", "classNamesHierarchy": "a", "maxDeepLevel": "two"}},
		{name: "negative depth", attrs: map[string]string{"idTopicRoot": "1", "classNamesHierarchy": "a", "maxDeepLevel": "-1"}},
		{name: "malformed flag", attrs: map[string]string{"idTopicRoot": "1", "classNamesHierarchy": "a", "hierarchicSelection": "maybe"}},
		{name: "missing classes", attrs: map[string]string{"idTopicRoot": "1"}},
		{name: "filter without classes", attrs: map[string]string{"idTopicRoot": "1", "classNamesHierarchy": "a", "idAxisFiltering": "2", "axisValueFilter": "x"}},
		{name: "unknown attribute", attrs: map[string]string{"idTopicRoot": "1", "classNamesHierarchy": "a", "colour": "red"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseAttributes(tc.attrs)
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("ParseAttributes() error = %v, want ConfigError", err)
			}
		})
	}
}

func TestClampedAtAndExactAt(t *testing.T) {
	t.Parallel()

	values := []string{"a", "b"}
	if got := clampedAt(values, 1); got != "a" {
		t.Fatalf("clampedAt(1) = %q", got)
	}
	if got := clampedAt(values, 5); got != "b" {
		t.Fatalf("clampedAt(5) = %q", got)
	}
	if got := exactAt(values, 2); got != "b" {
		t.Fatalf("exactAt(2) = %q", got)
	}
	if got := exactAt(values, 3); got != "" {
		t.Fatalf("exactAt(3) = %q, want empty", got)
	}
	if got := clampedAt(nil, 1); got != "" {
		t.Fatalf("clampedAt(nil) = %q, want empty", got)
	}
}

func TestParseAttributesKeepsPrefixPositions(t *testing.T) {
	t.Parallel()

	opts, err := ParseAttributes(map[string]string{
		"idTopicRoot":         "0",
		"classNamesHierarchy": "l1",
		"prefixIdHierarchy":   "a_, ,c_",
	})
	if err != nil {
		t.Fatalf("ParseAttributes() error = %v", err)
	}
	if len(opts.URLPrefixes) != 3 || opts.URLPrefixes[0] != "a_" || opts.URLPrefixes[1] != "" || opts.URLPrefixes[2] != "c_" {
		t.Fatalf("URLPrefixes = %q", opts.URLPrefixes)
	}
}
