package banner

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/bannergrab/models"
	"golang.org/x/net/html"
)

// DefaultAttributeDepth is how many levels, the element included, are
// searched for banner hints.
const DefaultAttributeDepth = 5

// valueAttrs are copied into the set verbatim (lower-cased).
var valueAttrs = []string{"id", "name", "role", "data-type", "data-section-type"}

// AttributeSet is the flattened, lower-cased set of searchable tokens
// collected from an element and its ancestors.
type AttributeSet map[string]struct{}

// NewAttributeSet builds a set from tokens, lower-casing each.
func NewAttributeSet(tokens ...string) AttributeSet {
	s := make(AttributeSet, len(tokens))
	for _, t := range tokens {
		s.Add(t)
	}
	return s
}

// Add inserts a trimmed, lower-cased token. Empty tokens are ignored.
func (s AttributeSet) Add(token string) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token != "" {
		s[token] = struct{}{}
	}
}

// Has reports whether token is in the set.
func (s AttributeSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Sorted returns the tokens in lexical order, for logging and tests.
func (s AttributeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ExtractAttributes collects the searchable tokens of sel's first node and
// up to maxDepth-1 of its ancestors. The walk stops early at the document
// root. maxDepth <= 0 uses DefaultAttributeDepth.
func ExtractAttributes(sel *goquery.Selection, maxDepth int) (AttributeSet, error) {
	if sel == nil || sel.Length() == 0 {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "empty selection", nil)
	}
	node := sel.Get(0)
	if node == nil || node.Type != html.ElementNode {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "candidate is not an element", nil)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultAttributeDepth
	}

	set := make(AttributeSet)
	for depth := 0; node != nil && depth < maxDepth; depth++ {
		if node.Type != html.ElementNode {
			break
		}
		collectNode(set, node)
		node = node.Parent
	}
	return set, nil
}

func collectNode(set AttributeSet, n *html.Node) {
	set.Add(n.Data)
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if key == "class" {
			classes := strings.Fields(a.Val)
			if len(classes) == 0 {
				continue
			}
			set.Add(strings.Join(classes, " "))
			for _, c := range classes {
				set.Add(c)
			}
			continue
		}
		for _, want := range valueAttrs {
			if key == want {
				set.Add(a.Val)
				break
			}
		}
	}
}
