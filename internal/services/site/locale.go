package site

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// LangParam is the query parameter used to force a locale.
const LangParam = "lang"

type locales struct {
	supported []language.Tag
	matcher   language.Matcher
}

// newLocales parses a comma-separated tag list. The first tag is the default.
func newLocales(list string) (locales, error) {
	var tags []language.Tag
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
		if raw == "" {
			continue
		}
		tag, err := language.Parse(raw)
		if err != nil {
			return locales{}, fmt.Errorf("parse site language %q: %w", raw, err)
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	return locales{supported: tags, matcher: language.NewMatcher(tags)}, nil
}

// resolve picks the supported tag for r: the lang parameter first, then
// Accept-Language, then the default.
func (l locales) resolve(r *http.Request) language.Tag {
	if value := strings.TrimSpace(r.URL.Query().Get(LangParam)); value != "" {
		if tag, err := language.Parse(strings.ReplaceAll(value, "_", "-")); err == nil {
			_, idx, confidence := l.matcher.Match(tag)
			if confidence != language.No {
				return l.supported[idx]
			}
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		_, idx := language.MatchStrings(l.matcher, accept)
		return l.supported[idx]
	}
	return l.supported[0]
}
