package models

// Dimensions is an image size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UnfilteredTerm is the matched-term sentinel used when no include or
// exclude terms were configured.
const UnfilteredTerm = "unfiltered"

// MatchResult is the outcome of classifying one image.
type MatchResult struct {
	Accepted     bool
	MatchedTerms []string
}

// SavedImage is one accepted image written to the output directory.
type SavedImage struct {
	// Path is the file location on disk.
	Path string `json:"path"`

	// SourceURL is the resolved URL the bytes were downloaded from.
	SourceURL string `json:"source_url"`

	// MatchedTerms lists the terms that justified keeping the image.
	MatchedTerms []string `json:"matched_terms"`

	// Format is the detected image format ("jpeg", "png", ...).
	Format string `json:"format"`

	Dimensions Dimensions `json:"dimensions"`
}

// RunResult is what one scrape run produces.
type RunResult struct {
	Images    []SavedImage `json:"images"`
	PageTitle string       `json:"page_title,omitempty"`
	FinalURL  string       `json:"final_url"`

	// Candidates is the number of image elements found on the page.
	Candidates int `json:"candidates"`

	// Skipped is the number of candidates that were not saved.
	Skipped int `json:"skipped"`
}

// BannerResponse is the response for POST /api/v1/banners.
type BannerResponse struct {
	// Success indicates whether the run produced at least one image.
	Success bool `json:"success"`

	Message    string `json:"message,omitempty"`
	FolderName string `json:"folder_name,omitempty"`
	PageTitle  string `json:"page_title,omitempty"`
	FinalURL   string `json:"final_url,omitempty"`

	// Images is the display list, one entry per distinct file name.
	Images []ImageEntry `json:"images"`

	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ImageEntry is one image in a BannerResponse.
type ImageEntry struct {
	// URL is the public URL under which the saved file is served.
	URL          string   `json:"url"`
	Path         string   `json:"path"`
	SourceURL    string   `json:"source_url"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Format       string   `json:"format"`
	MatchedTerms []string `json:"matched_terms"`
}

// TimingInfo breaks down the time spent in a run.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
	OutputDir string `json:"output_dir"`
}
