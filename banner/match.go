package banner

import (
	"log/slog"
	"strings"

	"github.com/use-agent/bannergrab/models"
)

// Match classifies one image.
//
// Order: size floor, then "no terms accepts everything", then excludes
// (which always win), then custom include terms, then the default
// vocabulary. A ruleset with only exclude terms accepts every image that
// no exclude term matches. Rejections always carry an empty term list.
func (r *Ruleset) Match(attrs AttributeSet, dims models.Dimensions) models.MatchResult {
	if dims.Width < r.minWidth || dims.Height < r.minHeight {
		slog.Debug("image below size floor",
			"width", dims.Width, "height", dims.Height,
			"minWidth", r.minWidth, "minHeight", r.minHeight,
		)
		return reject()
	}

	if !r.HasTerms() {
		return models.MatchResult{Accepted: true, MatchedTerms: []string{models.UnfilteredTerm}}
	}

	for _, term := range r.exclude {
		if TermMatches(term, attrs) {
			slog.Debug("image excluded", "term", term)
			return reject()
		}
	}

	if len(r.include) == 0 {
		return models.MatchResult{Accepted: true, MatchedTerms: []string{}}
	}

	if matched := matchAll(r.include, attrs); len(matched) > 0 {
		return models.MatchResult{Accepted: true, MatchedTerms: matched}
	}

	if matched := matchAll(r.defaults, attrs); len(matched) > 0 {
		slog.Debug("accepted by default vocabulary", "terms", matched)
		return models.MatchResult{Accepted: true, MatchedTerms: matched}
	}

	return reject()
}

func reject() models.MatchResult {
	return models.MatchResult{MatchedTerms: []string{}}
}

func matchAll(terms []string, attrs AttributeSet) []string {
	var matched []string
	for _, term := range terms {
		if TermMatches(term, attrs) {
			matched = append(matched, term)
		}
	}
	return matched
}

// TermMatches reports whether term occurs in attrs, either as an exact
// token or as whole words of a compound token. Tokens are split on
// whitespace, then each word on '-' and '_'; every whitespace-separated
// part of term must be among the words or parts of a single token.
// "banner" matches "hero_banner_slide" but not "bannerx".
func TermMatches(term string, attrs AttributeSet) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	if attrs.Has(term) {
		return true
	}
	want := strings.Fields(term)
	for token := range attrs {
		parts := tokenParts(strings.ToLower(token))
		if containsAll(parts, want) {
			return true
		}
	}
	return false
}

func tokenParts(token string) map[string]struct{} {
	parts := make(map[string]struct{})
	for _, word := range strings.Fields(token) {
		parts[word] = struct{}{}
		for _, p := range strings.FieldsFunc(word, isJoiner) {
			parts[p] = struct{}{}
		}
	}
	return parts
}

func isJoiner(r rune) bool { return r == '-' || r == '_' }

func containsAll(parts map[string]struct{}, want []string) bool {
	if len(want) == 0 {
		return false
	}
	for _, w := range want {
		if _, ok := parts[w]; !ok {
			return false
		}
	}
	return true
}
