package models

// BannerRequest is the payload for POST /api/v1/banners.
type BannerRequest struct {
	// URL is the target page to scan for banner images. Required.
	URL string `json:"url" binding:"required,url"`

	// FolderName names the output folder for this run. It must be a single
	// path element. Default: a random UUID.
	FolderName string `json:"folder_name,omitempty"`

	// IncludeTerms and ExcludeTerms configure the term filter.
	// An image is kept when one include term (or, failing that, one
	// built-in marketing term) appears in its attributes, and no exclude
	// term does.
	IncludeTerms []string `json:"include_terms,omitempty"`
	ExcludeTerms []string `json:"exclude_terms,omitempty"`

	// MinWidth and MinHeight set the pixel size floor. Default: 100.
	MinWidth  *int `json:"min_width,omitempty" binding:"omitempty,min=0"`
	MinHeight *int `json:"min_height,omitempty" binding:"omitempty,min=0"`

	// AllowedFormats restricts the decoded formats that are kept.
	// Default: jpg, jpeg, png, gif.
	AllowedFormats []string `json:"allowed_formats,omitempty"`

	// Preset selects a named ruleset ("marketing" is built in; more may be
	// loaded from the presets file). Explicit fields override the preset.
	Preset string `json:"preset,omitempty"`

	// MaxAge enables the response cache: a cached response younger than
	// MaxAge milliseconds is returned as-is. Default: 0 (no caching).
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// RuleOptions are the filter settings shared by every URL in a batch.
type RuleOptions struct {
	IncludeTerms   []string `json:"include_terms,omitempty"`
	ExcludeTerms   []string `json:"exclude_terms,omitempty"`
	MinWidth       *int     `json:"min_width,omitempty" binding:"omitempty,min=0"`
	MinHeight      *int     `json:"min_height,omitempty" binding:"omitempty,min=0"`
	AllowedFormats []string `json:"allowed_formats,omitempty"`
	Preset         string   `json:"preset,omitempty"`
}

// Rules returns the filter portion of the request.
func (r *BannerRequest) Rules() RuleOptions {
	return RuleOptions{
		IncludeTerms:   r.IncludeTerms,
		ExcludeTerms:   r.ExcludeTerms,
		MinWidth:       r.MinWidth,
		MinHeight:      r.MinHeight,
		AllowedFormats: r.AllowedFormats,
		Preset:         r.Preset,
	}
}

// Empty reports whether no filter setting was given at all. Such a
// request runs without a ruleset.
func (o RuleOptions) Empty() bool {
	return len(o.IncludeTerms) == 0 &&
		len(o.ExcludeTerms) == 0 &&
		o.MinWidth == nil &&
		o.MinHeight == nil &&
		len(o.AllowedFormats) == 0 &&
		o.Preset == ""
}
