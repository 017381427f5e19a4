package banner

import (
	"strconv"
	"strings"
)

// SrcsetCandidate is one entry of a srcset attribute.
type SrcsetCandidate struct {
	URL string

	// Width is set for "Nw" descriptors, Density for "Nx" descriptors.
	// An entry without a descriptor has Density 1.
	Width   int
	Density float64
}

// ParseSrcset splits a srcset value into its candidates. Entries whose
// descriptor cannot be parsed are dropped.
//
// The URL of each entry runs up to the next whitespace, so commas inside
// URLs (common on image CDNs) do not split an entry.
func ParseSrcset(value string) []SrcsetCandidate {
	var out []SrcsetCandidate
	s := value
	for {
		s = strings.TrimLeft(s, " \t\n\r\f,")
		if s == "" {
			return out
		}

		end := strings.IndexAny(s, " \t\n\r\f")
		var rawURL, rest string
		if end < 0 {
			rawURL, rest = s, ""
		} else {
			rawURL, rest = s[:end], s[end:]
		}

		// A URL immediately followed by a comma has no descriptor.
		descriptor := ""
		if strings.HasSuffix(rawURL, ",") {
			rawURL = strings.TrimRight(rawURL, ",")
			s = rest
		} else if comma := strings.IndexByte(rest, ','); comma >= 0 {
			descriptor, s = rest[:comma], rest[comma+1:]
		} else {
			descriptor, s = rest, ""
		}

		if rawURL == "" {
			continue
		}
		if c, ok := parseDescriptor(rawURL, strings.TrimSpace(descriptor)); ok {
			out = append(out, c)
		}
	}
}

func parseDescriptor(rawURL, descriptor string) (SrcsetCandidate, bool) {
	c := SrcsetCandidate{URL: rawURL}
	if descriptor == "" {
		c.Density = 1
		return c, true
	}
	// Only the first descriptor token counts; "800w 600h" style extras are ignored.
	token := strings.ToLower(strings.Fields(descriptor)[0])
	switch {
	case strings.HasSuffix(token, "w"):
		w, err := strconv.Atoi(strings.TrimSuffix(token, "w"))
		if err != nil || w <= 0 {
			return c, false
		}
		c.Width = w
	case strings.HasSuffix(token, "x"):
		d, err := strconv.ParseFloat(strings.TrimSuffix(token, "x"), 64)
		if err != nil || d <= 0 {
			return c, false
		}
		c.Density = d
	default:
		return c, false
	}
	return c, true
}

// BestSrcset picks the highest quality candidate. The widest "Nw" entry wins;
// densities are compared only when no entry carries a width descriptor.
// Ties keep the earlier entry.
func BestSrcset(candidates []SrcsetCandidate) (SrcsetCandidate, bool) {
	var bestW, bestX SrcsetCandidate
	haveW, haveX := false, false
	for _, c := range candidates {
		if c.Width > 0 {
			if !haveW || c.Width > bestW.Width {
				bestW, haveW = c, true
			}
			continue
		}
		if !haveX || c.Density > bestX.Density {
			bestX, haveX = c, true
		}
	}
	if haveW {
		return bestW, true
	}
	return bestX, haveX
}

// BestSrcsetURL returns the URL of the best candidate in value, or "".
func BestSrcsetURL(value string) string {
	if best, ok := BestSrcset(ParseSrcset(value)); ok {
		return best.URL
	}
	return ""
}
