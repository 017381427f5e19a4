package banner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/use-agent/bannergrab/models"
)

// DefaultMinSize is the size floor used when Options leaves a dimension unset.
const DefaultMinSize = 100

// DefaultAllowedFormats are kept when Options.AllowedFormats is nil.
var DefaultAllowedFormats = []string{"jpg", "jpeg", "png", "gif"}

// DefaultTerms is the built-in marketing vocabulary. It backs up custom
// include terms that found nothing on a page.
var DefaultTerms = []string{
	"banner", "hero", "slider", "carousel", "featured",
	"header", "promotion", "campaign", "slide", "image",
	"img-box", "main", "content", "full-width", "one_image",
	"logolist", "image-box", "one-image", "logo-list",
	"images-contain", "image-contain", "image-contain-box",
	"adaptive_height slide-mobile", "item slick-slide",
	"item slick-slide slick-current slick-active", "slick-track",
	"slick-list draggable", "shopify-section home-slideshow-sections",
	"slideshow slick-initialized slick-slider slick-dotted",
	"container-fluid", "hero__content__wrapper", "column__media",
	"carousel-slide s__block s__block--columnimage",
}

// marketingExcludes are the exclusions of the "marketing" preset.
var marketingExcludes = []string{
	"desktop-only", "desktop-banner", "desktop-view", "desktop-version",
	"thumbnail", "mini-thumb", "cart", "wishlist", "avatar", "icon",
	"product-grid-item", "product-card-wrapper", "product-card",
	"product-card-image", "product-card-image-wrapper",
	"product-card-image-wrapper-inner", "card-image-wrapper",
	"card-image-wrapper-inner", "card-image", "card-image-inner",
}

// Options configures a Ruleset. Nil fields take the documented defaults.
type Options struct {
	IncludeTerms []string
	ExcludeTerms []string

	// MinWidth and MinHeight default to DefaultMinSize.
	MinWidth  *int
	MinHeight *int

	// AllowedFormats defaults to DefaultAllowedFormats.
	AllowedFormats []string

	// DefaultTerms overrides the fallback vocabulary. Defaults to DefaultTerms.
	DefaultTerms []string
}

// MarketingOptions returns the classic banner preset: the built-in
// vocabulary as include terms, a list of product-grid and chrome
// exclusions, and a 100x100 floor.
func MarketingOptions() Options {
	return Options{
		IncludeTerms: append([]string(nil), DefaultTerms...),
		ExcludeTerms: append([]string(nil), marketingExcludes...),
	}
}

// Ruleset is an immutable accept/reject policy for one scrape run.
// It is safe for concurrent use.
type Ruleset struct {
	include      []string
	exclude      []string
	defaults     []string
	minWidth     int
	minHeight    int
	formats      map[string]struct{}
	formatsOrder []string
}

// NewRuleset validates opts and builds a Ruleset. Terms are trimmed,
// lower-cased and de-duplicated; empty terms are dropped.
func NewRuleset(opts Options) (*Ruleset, error) {
	rs := &Ruleset{
		include:   normalizeTerms(opts.IncludeTerms),
		exclude:   normalizeTerms(opts.ExcludeTerms),
		minWidth:  DefaultMinSize,
		minHeight: DefaultMinSize,
	}

	if opts.MinWidth != nil {
		rs.minWidth = *opts.MinWidth
	}
	if opts.MinHeight != nil {
		rs.minHeight = *opts.MinHeight
	}
	if rs.minWidth < 0 || rs.minHeight < 0 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("minimum size must not be negative (got %dx%d)", rs.minWidth, rs.minHeight), nil)
	}

	if opts.DefaultTerms != nil {
		rs.defaults = normalizeTerms(opts.DefaultTerms)
	} else {
		rs.defaults = normalizeTerms(DefaultTerms)
	}

	formats := opts.AllowedFormats
	if formats == nil {
		formats = DefaultAllowedFormats
	}
	rs.formatsOrder = normalizeTerms(formats)
	if len(rs.formatsOrder) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "at least one allowed format is required", nil)
	}
	rs.formats = make(map[string]struct{}, len(rs.formatsOrder))
	for _, f := range rs.formatsOrder {
		rs.formats[f] = struct{}{}
	}

	return rs, nil
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// HasTerms reports whether any include or exclude term is configured.
func (r *Ruleset) HasTerms() bool {
	return len(r.include) > 0 || len(r.exclude) > 0
}

// MinWidth returns the configured width floor.
func (r *Ruleset) MinWidth() int { return r.minWidth }

// MinHeight returns the configured height floor.
func (r *Ruleset) MinHeight() int { return r.minHeight }

// IncludeTerms returns a copy of the normalised include terms.
func (r *Ruleset) IncludeTerms() []string { return append([]string(nil), r.include...) }

// ExcludeTerms returns a copy of the normalised exclude terms.
func (r *Ruleset) ExcludeTerms() []string { return append([]string(nil), r.exclude...) }

// AllowedFormats returns the allowed formats in configuration order.
func (r *Ruleset) AllowedFormats() []string { return append([]string(nil), r.formatsOrder...) }

// AllowsFormat reports whether format may be kept. "jpg" and "jpeg" are
// treated as the same format.
func (r *Ruleset) AllowsFormat(format string) bool {
	return formatAllowed(r.formats, format)
}

func formatAllowed(set map[string]struct{}, format string) bool {
	format = strings.ToLower(format)
	if _, ok := set[format]; ok {
		return true
	}
	switch format {
	case "jpeg":
		_, ok := set["jpg"]
		return ok
	case "jpg":
		_, ok := set["jpeg"]
		return ok
	}
	return false
}

// Fingerprint is a stable digest of the policy, used as a cache key part.
func (r *Ruleset) Fingerprint() string {
	h := sha256.New()
	for _, part := range [][]string{r.include, r.exclude, r.defaults, r.formatsOrder} {
		h.Write([]byte(strings.Join(part, "\x1f")))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "%dx%d", r.minWidth, r.minHeight)
	return hex.EncodeToString(h.Sum(nil))
}
