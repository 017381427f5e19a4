package handler

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/bannergrab/models"
)

// Download returns a handler for GET /api/v1/download/:folder.
// It streams the folder's files as <folder>_banners.zip.
func Download(outputDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		folder := c.Param("folder")
		if folder == "" || !folderPattern.MatchString(folder) || folder == "." || folder == ".." {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid folder name", nil), "")
			return
		}

		dir := filepath.Join(outputDir, folder)
		files, err := folderFiles(dir)
		if err != nil || len(files) == 0 {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "folder not found: "+folder, err), folder)
			return
		}

		c.Header("Content-Type", "application/zip")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_banners.zip"`, folder))
		c.Status(http.StatusOK)

		// Headers are already sent; failures from here on can only be logged.
		if err := writeZip(c.Writer, dir, files); err != nil {
			slog.Error("zip stream failed", "folder", folder, "error", err)
		}
	}
}

// folderFiles lists the regular files directly inside dir, sorted by name.
func folderFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeZip(w io.Writer, dir string, files []string) error {
	zw := zip.NewWriter(w)
	for _, name := range files {
		if err := addFile(zw, filepath.Join(dir, name), name); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
