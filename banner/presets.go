package banner

import (
	"github.com/use-agent/bannergrab/config"
	"github.com/use-agent/bannergrab/models"
)

// MarketingPreset is the name of the built-in preset.
const MarketingPreset = "marketing"

// Presets maps preset names to ruleset options.
type Presets map[string]Options

// LoadPresets reads named rulesets from a YAML file (see config.LoadPresets)
// and adds the built-in marketing preset unless the file overrides it.
func LoadPresets(path string) (Presets, error) {
	files, err := config.LoadPresets(path)
	if err != nil {
		return nil, err
	}
	p := Presets{MarketingPreset: MarketingOptions()}
	for name, rf := range files {
		p[name] = FileOptions(rf)
	}
	return p, nil
}

// FileOptions converts a rule file into Options.
func FileOptions(rf config.RuleFile) Options {
	return Options{
		IncludeTerms:   rf.IncludeTerms,
		ExcludeTerms:   rf.ExcludeTerms,
		MinWidth:       rf.MinWidth,
		MinHeight:      rf.MinHeight,
		AllowedFormats: rf.AllowedFormats,
	}
}

// Build turns request-level rule settings into a Ruleset. Settings that are
// entirely empty yield a nil Ruleset, i.e. an unfiltered run. Explicit
// fields override those of the named preset.
func (p Presets) Build(o models.RuleOptions) (*Ruleset, error) {
	if o.Empty() {
		return nil, nil
	}

	var opts Options
	if o.Preset != "" {
		preset, ok := p[o.Preset]
		if !ok {
			return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "unknown preset "+o.Preset, nil)
		}
		opts = preset
	}
	if len(o.IncludeTerms) > 0 {
		opts.IncludeTerms = o.IncludeTerms
	}
	if len(o.ExcludeTerms) > 0 {
		opts.ExcludeTerms = o.ExcludeTerms
	}
	if o.MinWidth != nil {
		opts.MinWidth = o.MinWidth
	}
	if o.MinHeight != nil {
		opts.MinHeight = o.MinHeight
	}
	if len(o.AllowedFormats) > 0 {
		opts.AllowedFormats = o.AllowedFormats
	}
	return NewRuleset(opts)
}
