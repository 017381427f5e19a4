package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// RuleFile is the on-disk form of a ruleset.
//
//	include_terms: [hero, banner]
//	exclude_terms: [thumbnail]
//	min_width: 600
//	min_height: 200
//	allowed_formats: [jpg, jpeg, png, webp]
type RuleFile struct {
	IncludeTerms   []string `yaml:"include_terms"`
	ExcludeTerms   []string `yaml:"exclude_terms"`
	MinWidth       *int     `yaml:"min_width"`
	MinHeight      *int     `yaml:"min_height"`
	AllowedFormats []string `yaml:"allowed_formats"`
}

// presetsFile is the top-level layout of a presets file.
type presetsFile struct {
	Presets map[string]RuleFile `yaml:"presets"`
}

// LoadRuleFile parses a single ruleset from a YAML file.
func LoadRuleFile(path string) (*RuleFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	var rf RuleFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	return &rf, nil
}

// LoadPresets parses named rulesets from a YAML file:
//
//	presets:
//	  shopify:
//	    include_terms: [slideshow, hero]
//
// An empty path yields an empty map.
func LoadPresets(path string) (map[string]RuleFile, error) {
	if path == "" {
		return map[string]RuleFile{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	var pf presetsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse presets file %s: %w", path, err)
	}
	if pf.Presets == nil {
		pf.Presets = map[string]RuleFile{}
	}
	return pf.Presets, nil
}
