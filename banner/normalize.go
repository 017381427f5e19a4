// Package banner decides which images on a web page are marketing banners.
//
// A run fetches the page, walks every <img>, resolves the best source URL,
// downloads and measures the image, classifies it against a Ruleset and
// writes the accepted ones to disk. Everything except the Orchestrator is a
// pure function over a single DOM element or attribute set.
package banner

import (
	"net/url"
	"strings"

	"github.com/use-agent/bannergrab/models"
)

// NormalizeURL resolves raw against base.
//
// data: URLs yield "" with a nil error; the caller skips them. Protocol-
// relative URLs take the scheme of base. Everything else is resolved with
// standard reference resolution.
func NormalizeURL(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		return "", nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeNetwork, "invalid base URL "+base, err)
	}

	if strings.HasPrefix(raw, "//") {
		scheme := baseURL.Scheme
		if scheme == "" {
			scheme = "https"
		}
		abs, err := url.Parse(scheme + ":" + raw)
		if err != nil {
			return "", models.NewScrapeError(models.ErrCodeNetwork, "invalid image URL "+raw, err)
		}
		return abs.String(), nil
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeNetwork, "invalid image URL "+raw, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
