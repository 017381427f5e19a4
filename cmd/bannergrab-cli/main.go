// Command bannergrab-cli runs one banner extraction locally and prints the
// result as JSON.
//
//	bannergrab-cli -url https://shop.example -out ./banners -include hero,slideshow
//
// Without rule flags the built-in marketing preset applies; -unfiltered
// keeps every image of at least banner.MinimalFloor pixels.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/use-agent/bannergrab/banner"
	"github.com/use-agent/bannergrab/config"
	"github.com/use-agent/bannergrab/models"
	"github.com/use-agent/bannergrab/scraper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options are the parsed command line flags.
type options struct {
	url        string
	out        string
	include    string
	exclude    string
	minWidth   int
	minHeight  int
	formats    string
	rulesFile  string
	preset     string
	unfiltered bool
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("bannergrab-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.url, "url", "", "page to scan (required)")
	fs.StringVar(&o.out, "out", "scraped_images", "output directory")
	fs.StringVar(&o.include, "include", "", "comma-separated include terms")
	fs.StringVar(&o.exclude, "exclude", "", "comma-separated exclude terms")
	fs.IntVar(&o.minWidth, "min-width", -1, "minimum width in pixels (default 100)")
	fs.IntVar(&o.minHeight, "min-height", -1, "minimum height in pixels (default 100)")
	fs.StringVar(&o.formats, "formats", "", "comma-separated allowed formats (default jpg,jpeg,png,gif)")
	fs.StringVar(&o.rulesFile, "rules", "", "YAML rule file")
	fs.StringVar(&o.preset, "preset", "", "named preset (\"marketing\" or one from BANNERGRAB_PRESETS_FILE)")
	fs.BoolVar(&o.unfiltered, "unfiltered", false, "keep every image, ignoring all rules")
	fs.BoolVar(&o.verbose, "v", false, "log skipped images")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.url == "" {
		fs.Usage()
		return nil, fmt.Errorf("-url is required")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Load()
	rs, err := buildRuleset(o, cfg.Rules.PresetsFile)
	if err != nil {
		fmt.Fprintf(stderr, "bannergrab-cli: %v\n", err)
		return 2
	}

	if err := os.MkdirAll(o.out, 0o755); err != nil {
		fmt.Fprintf(stderr, "bannergrab-cli: %v\n", err)
		return 1
	}

	orch := banner.NewOrchestrator(scraper.NewScraper(cfg.Scraper), banner.WithLogger(logger))
	result, err := orch.Run(ctx, o.url, o.out, rs)
	if err != nil {
		fmt.Fprintf(stderr, "bannergrab-cli: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "bannergrab-cli: %v\n", err)
		return 1
	}
	return 0
}

// buildRuleset layers the rule file, the preset and the explicit flags, in
// that order of increasing precedence.
func buildRuleset(o *options, presetsFile string) (*banner.Ruleset, error) {
	if o.unfiltered {
		return nil, nil
	}

	presets, err := banner.LoadPresets(presetsFile)
	if err != nil {
		return nil, err
	}

	var ro models.RuleOptions
	if o.rulesFile != "" {
		rf, err := config.LoadRuleFile(o.rulesFile)
		if err != nil {
			return nil, err
		}
		ro = models.RuleOptions{
			IncludeTerms:   rf.IncludeTerms,
			ExcludeTerms:   rf.ExcludeTerms,
			MinWidth:       rf.MinWidth,
			MinHeight:      rf.MinHeight,
			AllowedFormats: rf.AllowedFormats,
		}
	}

	ro.Preset = o.preset
	if v := splitList(o.include); len(v) > 0 {
		ro.IncludeTerms = v
	}
	if v := splitList(o.exclude); len(v) > 0 {
		ro.ExcludeTerms = v
	}
	if o.minWidth >= 0 {
		ro.MinWidth = &o.minWidth
	}
	if o.minHeight >= 0 {
		ro.MinHeight = &o.minHeight
	}
	if v := splitList(o.formats); len(v) > 0 {
		ro.AllowedFormats = v
	}

	if ro.Empty() {
		ro.Preset = banner.MarketingPreset
	}
	return presets.Build(ro)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
