package banner

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/bannergrab/models"
	"github.com/use-agent/bannergrab/scraper"
)

// MinimalFloor is the size floor of a run without a ruleset. It only
// discards tracking pixels and spacer images.
const MinimalFloor = 10

var candidateMatcher = cascadia.MustCompile("img")

// Fetcher retrieves pages and images. *scraper.Scraper implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*scraper.Page, error)
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Orchestrator runs the fetch, classify and persist pipeline for one page
// at a time. It holds no per-run state, but callers running several pages in
// parallel should still give each its own output directory.
type Orchestrator struct {
	fetcher      Fetcher
	logger       *slog.Logger
	depth        int
	minimalFloor int
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for per-candidate diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithAttributeDepth overrides DefaultAttributeDepth.
func WithAttributeDepth(depth int) Option {
	return func(o *Orchestrator) { o.depth = depth }
}

// NewOrchestrator creates an Orchestrator using f for all network access.
func NewOrchestrator(f Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:      f,
		logger:       slog.Default(),
		depth:        DefaultAttributeDepth,
		minimalFloor: MinimalFloor,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// candidate is the transient record of one image under evaluation.
type candidate struct {
	index  int
	sel    *goquery.Selection
	url    string
	data   []byte
	dims   models.Dimensions
	format string
}

// Pipeline stages, used to tag skips.
const (
	stageResolve  = "resolve"
	stageDownload = "download"
	stageMeasure  = "measure"
	stageClassify = "classify"
	stagePersist  = "persist"
)

// outcome is the tagged result of processing one candidate: either saved
// is set, or the candidate was skipped at stage for reason.
type outcome struct {
	saved  *models.SavedImage
	stage  string
	reason string
	err    error
}

func skipped(stage, reason string, err error) outcome {
	return outcome{stage: stage, reason: reason, err: err}
}

// Run scrapes pageURL and writes every accepted image into outputDir,
// which must already exist. A nil ruleset accepts every allowed-format
// image of at least MinimalFloor pixels.
//
// Per-image failures are logged and skipped. Run fails when the page cannot
// be fetched, when it has no <img> elements, or when no image survives.
func (o *Orchestrator) Run(ctx context.Context, pageURL, outputDir string, rs *Ruleset) (*models.RunResult, error) {
	page, err := o.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	baseURL := page.FinalURL
	if baseURL == "" {
		baseURL = pageURL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "cannot parse page", err)
	}

	total := doc.FindMatcher(candidateMatcher).Length()
	o.logger.Info("page fetched", "url", pageURL, "finalURL", baseURL, "candidates", total)
	if total == 0 {
		return nil, models.NewScrapeError(models.ErrCodeNoImages, "no image elements found on "+pageURL, nil)
	}

	result := &models.RunResult{
		Images:     []models.SavedImage{},
		PageTitle:  page.Title,
		FinalURL:   baseURL,
		Candidates: total,
	}

	for i, sel := range candidates(doc) {
		if err := ctx.Err(); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "run cancelled", err)
		}
		c := &candidate{index: i, sel: sel}
		out := o.process(ctx, c, baseURL, outputDir, rs, len(result.Images))
		if out.saved != nil {
			result.Images = append(result.Images, *out.saved)
			continue
		}
		result.Skipped++
		o.logSkip(c, out)
	}

	if len(result.Images) == 0 {
		return nil, noSurvivorsError(pageURL, total, rs)
	}

	o.logger.Info("run finished", "url", pageURL, "saved", len(result.Images), "skipped", result.Skipped)
	return result, nil
}

// candidates yields every <img> in document order. Ranging over it again
// restarts from the first element.
func candidates(doc *goquery.Document) iter.Seq2[int, *goquery.Selection] {
	return func(yield func(int, *goquery.Selection) bool) {
		nodes := doc.FindMatcher(candidateMatcher)
		for i := range nodes.Length() {
			if !yield(i, nodes.Eq(i)) {
				return
			}
		}
	}
}

func (o *Orchestrator) process(ctx context.Context, c *candidate, baseURL, outputDir string, rs *Ruleset, seq int) outcome {
	raw := ResolveSource(c.sel)
	if raw == "" {
		return skipped(stageResolve, "no source attribute", nil)
	}
	u, err := NormalizeURL(raw, baseURL)
	if err != nil {
		return skipped(stageResolve, "unparseable source "+raw, err)
	}
	if u == "" {
		return skipped(stageResolve, "inline data URL", nil)
	}
	c.url = u

	c.data, err = o.fetcher.FetchImage(ctx, c.url)
	if err != nil {
		return skipped(stageDownload, "download failed", err)
	}

	c.dims, c.format, err = Measure(c.data)
	if err != nil {
		return skipped(stageMeasure, "undecodable image", err)
	}

	match, err := o.classify(c, rs)
	if err != nil {
		return skipped(stageClassify, "attribute extraction failed", err)
	}
	if !match.Accepted {
		return skipped(stageClassify, fmt.Sprintf("rejected (%dx%d %s)", c.dims.Width, c.dims.Height, c.format), nil)
	}

	path, err := persist(outputDir, seq, c.format, c.data)
	if err != nil {
		return skipped(stagePersist, "write failed", err)
	}

	return outcome{saved: &models.SavedImage{
		Path:         path,
		SourceURL:    c.url,
		MatchedTerms: match.MatchedTerms,
		Format:       c.format,
		Dimensions:   c.dims,
	}}
}

func (o *Orchestrator) classify(c *candidate, rs *Ruleset) (models.MatchResult, error) {
	if rs == nil {
		if !formatAllowed(defaultFormatSet, c.format) {
			return models.MatchResult{}, nil
		}
		if c.dims.Width < o.minimalFloor || c.dims.Height < o.minimalFloor {
			return models.MatchResult{}, nil
		}
		return models.MatchResult{Accepted: true, MatchedTerms: []string{models.UnfilteredTerm}}, nil
	}

	if !rs.AllowsFormat(c.format) {
		return models.MatchResult{}, nil
	}
	attrs, err := ExtractAttributes(c.sel, o.depth)
	if err != nil {
		return models.MatchResult{}, err
	}
	return rs.Match(attrs, c.dims), nil
}

var defaultFormatSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(DefaultAllowedFormats))
	for _, f := range DefaultAllowedFormats {
		m[f] = struct{}{}
	}
	return m
}()

// persist writes data as image_<seq>.<format> in dir.
func persist(dir string, seq int, format string, data []byte) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("image_%d.%s", seq, format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (o *Orchestrator) logSkip(c *candidate, out outcome) {
	attrs := []any{"index", c.index, "url", c.url, "stage", out.stage, "reason", out.reason}
	if out.err != nil {
		attrs = append(attrs, "error", out.err)
	}
	switch out.stage {
	case stageDownload, stageMeasure, stagePersist:
		o.logger.Warn("image skipped", attrs...)
	default:
		o.logger.Debug("image skipped", attrs...)
	}
}

func noSurvivorsError(pageURL string, total int, rs *Ruleset) error {
	if rs != nil && rs.HasTerms() {
		return models.NewScrapeError(models.ErrCodeNoMatches,
			fmt.Sprintf("none of the %d images on %s matched the filters; try fewer exclude terms, broader include terms or a smaller minimum size", total, pageURL), nil)
	}
	return models.NewScrapeError(models.ErrCodeNoMatches,
		fmt.Sprintf("none of the %d images on %s could be downloaded or met the size and format limits", total, pageURL), nil)
}
