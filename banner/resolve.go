package banner

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// srcsetAttrs are read in this order on every element that may carry
// responsive candidates.
var srcsetAttrs = []string{"srcset", "data-srcset"}

// srcAttrs are the plain source attributes, including the common lazy-load
// conventions, in priority order.
var srcAttrs = []string{"src", "data-src", "data-original", "data-lazy-src"}

// lowResMarkers flag a src that is probably a placeholder or thumbnail.
var lowResMarkers = []string{"_100x", "_thumb", "_small", "_mini"}

var sourceMatcher = cascadia.MustCompile("source")

// ResolveSource returns the highest quality source URL for an image
// element, or "" when it has none. The URL is returned as written in the
// markup; callers resolve it with NormalizeURL.
func ResolveSource(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}

	// 1. Responsive candidates on the element or its enclosing <picture>.
	targets := sel
	if parent := sel.Parent(); goquery.NodeName(parent) == "picture" {
		targets = sel.AddSelection(parent)
	}
	if u := bestOfAttrs(targets); u != "" {
		return u
	}

	// 2. Plain and lazy-load sources.
	for _, attr := range srcAttrs {
		v := strings.TrimSpace(sel.AttrOr(attr, ""))
		if v == "" {
			continue
		}
		if hasLowResMarker(v) {
			if u := bestOfSiblings(sel); u != "" {
				return u
			}
		}
		return v
	}

	// 3. <picture><source media=... srcset=...>
	if parent := sel.Parent(); goquery.NodeName(parent) == "picture" {
		if u := bestPictureSource(parent); u != "" {
			return u
		}
	}

	return ""
}

// bestOfAttrs merges the candidates of every srcset-like attribute on the
// elements of sel and returns the best URL.
func bestOfAttrs(sel *goquery.Selection) string {
	var all []SrcsetCandidate
	sel.Each(func(_ int, el *goquery.Selection) {
		for _, attr := range srcsetAttrs {
			if v, ok := el.Attr(attr); ok {
				all = append(all, ParseSrcset(v)...)
			}
		}
	})
	if best, ok := BestSrcset(all); ok {
		return best.URL
	}
	return ""
}

func bestOfSiblings(sel *goquery.Selection) string {
	var all []SrcsetCandidate
	sel.Siblings().Each(func(_ int, sib *goquery.Selection) {
		for _, attr := range srcsetAttrs {
			if v, ok := sib.Attr(attr); ok {
				all = append(all, ParseSrcset(v)...)
			}
		}
	})
	if best, ok := BestSrcset(all); ok {
		return best.URL
	}
	return ""
}

// bestPictureSource prefers the <source> whose media query carries the
// largest pixel value, falling back to the first one with a usable srcset.
func bestPictureSource(picture *goquery.Selection) string {
	var (
		bestURL   string
		bestWidth = -1
		firstURL  string
	)
	picture.ChildrenMatcher(sourceMatcher).Each(func(_ int, src *goquery.Selection) {
		u := bestOfAttrs(src)
		if u == "" {
			return
		}
		if firstURL == "" {
			firstURL = u
		}
		if w, ok := mediaWidth(src.AttrOr("media", "")); ok && w > bestWidth {
			bestURL, bestWidth = u, w
		}
	})
	if bestURL != "" {
		return bestURL
	}
	return firstURL
}

// mediaWidth concatenates every digit of a media query, so
// "(min-width: 1024px)" yields 1024.
func mediaWidth(media string) (int, bool) {
	var b strings.Builder
	for _, r := range media {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	w, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return w, true
}

func hasLowResMarker(src string) bool {
	lower := strings.ToLower(src)
	for _, m := range lowResMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
