package banner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/bannergrab/models"
)

func intp(v int) *int { return &v }

func mustRuleset(t *testing.T, opts Options) *Ruleset {
	t.Helper()
	rs, err := NewRuleset(opts)
	require.NoError(t, err)
	return rs
}

var big = models.Dimensions{Width: 1200, Height: 400}

func TestMatch_SizeFloor(t *testing.T) {
	rs := mustRuleset(t, Options{})
	tests := []struct {
		dims models.Dimensions
		want bool
	}{
		{models.Dimensions{Width: 99, Height: 500}, false},
		{models.Dimensions{Width: 500, Height: 99}, false},
		{models.Dimensions{Width: 100, Height: 100}, true},
		{models.Dimensions{Width: 2000, Height: 2000}, true},
	}
	for _, tt := range tests {
		got := rs.Match(NewAttributeSet("img"), tt.dims)
		assert.Equal(t, tt.want, got.Accepted, "%dx%d", tt.dims.Width, tt.dims.Height)
	}
}

func TestMatch_SizeFloorMonotonic(t *testing.T) {
	rs := mustRuleset(t, Options{IncludeTerms: []string{"hero"}})
	attrs := NewAttributeSet("hero")
	accepted := false
	for w := 50; w <= 300; w += 10 {
		got := rs.Match(attrs, models.Dimensions{Width: w, Height: w})
		if accepted {
			assert.True(t, got.Accepted, "growing past %d must stay accepted", w)
		}
		accepted = got.Accepted
	}
	assert.True(t, accepted)
}

func TestMatch_NoTermsIsUnfiltered(t *testing.T) {
	rs := mustRuleset(t, Options{MinWidth: intp(0), MinHeight: intp(0)})
	got := rs.Match(AttributeSet{}, models.Dimensions{Width: 1, Height: 1})
	assert.True(t, got.Accepted)
	assert.Equal(t, []string{models.UnfilteredTerm}, got.MatchedTerms)
}

func TestMatch_Include(t *testing.T) {
	rs := mustRuleset(t, Options{IncludeTerms: []string{"Hero", "slide"}})
	got := rs.Match(NewAttributeSet("img", "hero_banner_slide"), big)
	assert.True(t, got.Accepted)
	assert.Equal(t, []string{"hero", "slide"}, got.MatchedTerms)
}

func TestMatch_ExcludeWins(t *testing.T) {
	rs := mustRuleset(t, Options{
		IncludeTerms: []string{"hero"},
		ExcludeTerms: []string{"thumbnail"},
	})
	got := rs.Match(NewAttributeSet("hero", "product-thumbnail"), big)
	assert.False(t, got.Accepted)
}

func TestMatch_DefaultFallback(t *testing.T) {
	rs := mustRuleset(t, Options{IncludeTerms: []string{"promo-xyz"}})
	got := rs.Match(NewAttributeSet("img", "hero-banner"), big)
	assert.True(t, got.Accepted)
	assert.Equal(t, []string{"banner", "hero"}, got.MatchedTerms)
}

func TestMatch_ExcludeOnly(t *testing.T) {
	rs := mustRuleset(t, Options{ExcludeTerms: []string{"thumbnail"}})

	got := rs.Match(NewAttributeSet("img", "hero"), big)
	assert.True(t, got.Accepted)
	assert.Equal(t, []string{}, got.MatchedTerms)

	got = rs.Match(NewAttributeSet("img", "gallery"), big)
	assert.True(t, got.Accepted, "anything not excluded is kept")

	got = rs.Match(NewAttributeSet("img", "product-thumbnail"), big)
	assert.False(t, got.Accepted)
	assert.Equal(t, []string{}, got.MatchedTerms)
}

func TestMatch_RejectsCarryEmptyTerms(t *testing.T) {
	rs := mustRuleset(t, Options{IncludeTerms: []string{"hero"}, ExcludeTerms: []string{"logo"}})

	small := rs.Match(NewAttributeSet("hero"), models.Dimensions{Width: 10, Height: 10})
	excluded := rs.Match(NewAttributeSet("hero", "logo"), big)
	unmatched := rs.Match(NewAttributeSet("footer"), big)

	for _, got := range []models.MatchResult{small, excluded, unmatched} {
		assert.False(t, got.Accepted)
		assert.NotNil(t, got.MatchedTerms)
		assert.Empty(t, got.MatchedTerms)
	}
}

func TestMatch_EmptyAttributesWithTerms(t *testing.T) {
	rs := mustRuleset(t, Options{IncludeTerms: []string{"hero"}})
	got := rs.Match(AttributeSet{}, big)
	assert.False(t, got.Accepted)
}

func TestMatch_CustomDefaults(t *testing.T) {
	rs := mustRuleset(t, Options{IncludeTerms: []string{"nope"}, DefaultTerms: []string{}})
	got := rs.Match(NewAttributeSet("hero-banner"), big)
	assert.False(t, got.Accepted)
}

func TestTermMatches(t *testing.T) {
	tests := []struct {
		term  string
		token string
		want  bool
	}{
		{"banner", "banner", true},
		{"banner", "Banner", true},
		{"banner", "hero_banner_slide", true},
		{"banner", "hero-banner", true},
		{"banner", "bannerx", false},
		{"banner", "subbanner", false},
		{"slick-list draggable", "slick-list draggable", true},
		{"slick-list draggable", "slick-list draggable extra", true},
		{"slick-list draggable", "slick-list", false},
		{"item slick-slide", "slick-slide item", true},
		{"", "anything", false},
	}
	for _, tt := range tests {
		got := TermMatches(tt.term, NewAttributeSet(tt.token))
		assert.Equal(t, tt.want, got, "%q in %q", tt.term, tt.token)
	}
}

func TestNewRuleset_Validation(t *testing.T) {
	_, err := NewRuleset(Options{MinWidth: intp(-1)})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidInput, models.ErrorCode(err))

	_, err = NewRuleset(Options{AllowedFormats: []string{" "}})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidInput, models.ErrorCode(err))
}

func TestRuleset_Normalises(t *testing.T) {
	rs := mustRuleset(t, Options{
		IncludeTerms:   []string{" Hero ", "hero", ""},
		AllowedFormats: []string{"JPG", "png"},
	})
	assert.Equal(t, []string{"hero"}, rs.IncludeTerms())
	assert.Equal(t, []string{"jpg", "png"}, rs.AllowedFormats())
	assert.True(t, rs.AllowsFormat("jpeg"))
	assert.False(t, rs.AllowsFormat("gif"))
	assert.Equal(t, DefaultMinSize, rs.MinWidth())
}

func TestRuleset_Fingerprint(t *testing.T) {
	a := mustRuleset(t, Options{IncludeTerms: []string{"hero"}})
	b := mustRuleset(t, Options{IncludeTerms: []string{"HERO "}})
	c := mustRuleset(t, Options{IncludeTerms: []string{"hero"}, MinWidth: intp(10)})
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
