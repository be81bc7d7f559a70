package menu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const (
	// TopicIDPrefix prefixes generated list item ids.
	TopicIDPrefix = "topicId-"
	// ParentTopicIDPrefix prefixes generated nested list ids.
	ParentTopicIDPrefix = "parentTopicId-"
	// SelectedClassPrefix marks the class of selected items.
	SelectedClassPrefix = "selected-"
)

// Options is the validated menu configuration for one tag usage.
type Options struct {
	// RootID is the topic the walk starts from.
	RootID int `mapstructure:"idTopicRoot"`
	// SubRootID, when set and different from RootID, limits emitted markup to
	// the subtree below it while the walk still covers the whole tree.
	SubRootID *int `mapstructure:"idTopicSubRoot"`
	// SelectedParam names the request parameter carrying the selected topic id.
	SelectedParam string `mapstructure:"selectedTopicIdParameterName"`
	// SelectedSessionKey names the session attribute holding the selected topic.
	SelectedSessionKey string `mapstructure:"selectedTopicNameInSession"`
	// ContainerID is the id of the outermost list.
	ContainerID string `mapstructure:"id"`
	// ClassNames are applied per relative level; the last one repeats below.
	ClassNames []string `mapstructure:"classNamesHierarchy"`
	// FilteredClassNames replace ClassNames for topics carrying AxisValue.
	FilteredClassNames []string `mapstructure:"classNamesHierarchyFiltered"`
	// MaxDepth stops the walk below this relative level; nil is unlimited.
	// Level-1 items are always written, so 0 behaves like 1.
	MaxDepth *int `mapstructure:"maxDeepLevel"`
	// ExcludeNamed drops topics with this name (case-insensitive) and their subtrees.
	ExcludeNamed string `mapstructure:"excludeTopicsNamed"`
	AxisID       string `mapstructure:"idAxisFiltering"`
	AxisValue    string `mapstructure:"axisValueFilter"`
	// URLPrefixes are passed to the link generator per relative level.
	URLPrefixes []string `mapstructure:"prefixIdHierarchy"`
	// SeparatorClass, when set, emits a separator item between level-1 siblings.
	SeparatorClass string `mapstructure:"classNameSeparator"`
	// HierarchicSelection marks every ancestor of the selected topic as selected.
	HierarchicSelection bool `mapstructure:"hierarchicSelection"`
}

// ConfigError reports invalid menu options.
type ConfigError struct {
	Attribute string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("menu config: %v", e.Err)
	}
	return fmt.Sprintf("menu config %s: %v", e.Attribute, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DefaultOptions returns options with tag defaults applied.
func DefaultOptions() Options {
	return Options{HierarchicSelection: true}
}

// ParseAttributes decodes string tag attributes into Options. Blank values
// are treated as unset and unknown attribute names are rejected.
func ParseAttributes(attrs map[string]string) (Options, error) {
	opts := DefaultOptions()
	input := make(map[string]any, len(attrs))
	for key, value := range attrs {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		input[strings.TrimSpace(key)] = value
	}
	if _, ok := input["idTopicRoot"]; !ok {
		return Options{}, &ConfigError{Attribute: "idTopicRoot", Err: errors.New("is required")}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &opts,
	})
	if err != nil {
		return Options{}, &ConfigError{Err: err}
	}
	if err := decoder.Decode(input); err != nil {
		return Options{}, &ConfigError{Err: err}
	}
	opts.normalize()
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if o.MaxDepth != nil && *o.MaxDepth < 0 {
		return &ConfigError{Attribute: "maxDeepLevel", Err: fmt.Errorf("must not be negative, got %d", *o.MaxDepth)}
	}
	if len(cleanList(o.ClassNames)) == 0 {
		return &ConfigError{Attribute: "classNamesHierarchy", Err: errors.New("at least one class is required")}
	}
	if o.filtering() && len(cleanList(o.FilteredClassNames)) == 0 {
		return &ConfigError{Attribute: "classNamesHierarchyFiltered", Err: errors.New("is required when axis filtering is configured")}
	}
	return nil
}

func (o *Options) normalize() {
	o.ClassNames = cleanList(o.ClassNames)
	o.FilteredClassNames = cleanList(o.FilteredClassNames)
	// Prefixes are positional, so blank entries are kept.
	prefixes := make([]string, len(o.URLPrefixes))
	for i, prefix := range o.URLPrefixes {
		prefixes[i] = strings.TrimSpace(prefix)
	}
	o.URLPrefixes = prefixes
	o.SelectedParam = strings.TrimSpace(o.SelectedParam)
	o.SelectedSessionKey = strings.TrimSpace(o.SelectedSessionKey)
	o.ExcludeNamed = strings.TrimSpace(o.ExcludeNamed)
	o.AxisID = strings.TrimSpace(o.AxisID)
	o.AxisValue = strings.TrimSpace(o.AxisValue)
	o.SeparatorClass = strings.TrimSpace(o.SeparatorClass)
}

func (o Options) filtering() bool {
	return o.AxisID != "" && o.AxisValue != ""
}

// descends reports whether children of an item at level are walked.
func (o Options) descends(level int) bool {
	return o.MaxDepth == nil || *o.MaxDepth > level
}

func (o Options) gated() bool {
	return o.SubRootID != nil && *o.SubRootID != o.RootID
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

// clampedAt returns values[position-1], or the last value when position is
// outside the list.
func clampedAt(values []string, position int) string {
	if len(values) == 0 {
		return ""
	}
	if position >= 1 && position <= len(values) {
		return values[position-1]
	}
	return values[len(values)-1]
}

// exactAt returns values[position-1], or "" when position is outside the list.
func exactAt(values []string, position int) string {
	if position >= 1 && position <= len(values) {
		return values[position-1]
	}
	return ""
}
