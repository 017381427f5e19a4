package banner

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/use-agent/bannergrab/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Measure reads the pixel size and format of an encoded image without
// decoding the pixel data.
func Measure(data []byte) (models.Dimensions, string, error) {
	if len(data) == 0 {
		return models.Dimensions{}, "", models.NewScrapeError(models.ErrCodeImageProcessing, "empty image body", nil)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.Dimensions{}, "", models.NewScrapeError(models.ErrCodeImageProcessing, "cannot decode image", err)
	}
	return models.Dimensions{Width: cfg.Width, Height: cfg.Height}, strings.ToLower(format), nil
}
