package handler

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/bannergrab/banner"
	"github.com/use-agent/bannergrab/config"
	"github.com/use-agent/bannergrab/models"
)

// folderPattern restricts folder names to a single safe path element.
var folderPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// Runner executes banner runs on behalf of the handlers. Every run gets
// its own Orchestrator and output folder.
type Runner struct {
	Fetcher banner.Fetcher
	Presets banner.Presets
	Output  config.OutputConfig
}

// folderName validates a requested folder name, or generates one.
func folderName(requested string) (string, error) {
	if requested == "" {
		return uuid.NewString(), nil
	}
	if !folderPattern.MatchString(requested) || requested == "." || requested == ".." {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			"folder_name may only contain letters, digits, '.', '_' and '-'", nil)
	}
	return requested, nil
}

// Run scrapes pageURL into <Output.Dir>/<folder> and builds the API
// response. On failure the returned response carries the error detail.
func (rn *Runner) Run(ctx context.Context, pageURL, folder string, rs *banner.Ruleset) (*models.BannerResponse, error) {
	start := time.Now()
	dir := filepath.Join(rn.Output.Dir, filepath.FromSlash(folder))

	fail := func(err error) (*models.BannerResponse, error) {
		se := models.AsScrapeError(err)
		return &models.BannerResponse{
			Success:    false,
			Message:    se.Message,
			FolderName: folder,
			Images:     []models.ImageEntry{},
			Timing:     models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
			Error:      se.ToDetail(),
		}, se
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(models.NewScrapeError(models.ErrCodeInternal, "cannot create output folder", err))
	}

	o := banner.NewOrchestrator(rn.Fetcher, banner.WithLogger(slog.With("folder", folder)))
	result, err := o.Run(ctx, pageURL, dir, rs)
	if err != nil {
		// Only removes the folder when the run left it empty.
		_ = os.Remove(dir)
		return fail(err)
	}

	images := rn.imageEntries(folder, result.Images)
	return &models.BannerResponse{
		Success:    true,
		Message:    "images extracted",
		FolderName: folder,
		PageTitle:  result.PageTitle,
		FinalURL:   result.FinalURL,
		Images:     images,
		Timing:     models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
	}, nil
}

// imageEntries converts saved images to response entries, keeping the
// first entry per file name.
func (rn *Runner) imageEntries(folder string, saved []models.SavedImage) []models.ImageEntry {
	seen := make(map[string]struct{}, len(saved))
	out := make([]models.ImageEntry, 0, len(saved))
	for _, img := range saved {
		name := filepath.Base(img.Path)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, models.ImageEntry{
			URL:          rn.publicURL(folder, name),
			Path:         img.Path,
			SourceURL:    img.SourceURL,
			Width:        img.Dimensions.Width,
			Height:       img.Dimensions.Height,
			Format:       img.Format,
			MatchedTerms: img.MatchedTerms,
		})
	}
	return out
}

func (rn *Runner) publicURL(folder, name string) string {
	prefix := rn.Output.PublicPrefix
	if prefix == "" {
		prefix = "/"
	}
	return path.Join(prefix, folder, name)
}
