package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/bannergrab/cache"
	"github.com/use-agent/bannergrab/models"
)

// Banners returns a handler for POST /api/v1/banners.
//
// Flow:
//  1. Bind the request and build the ruleset (nil when no filter is set).
//  2. Serve from cache when max_age allows it.
//  3. Run the orchestrator into the requested (or a fresh) folder.
//  4. Store successful responses in the cache.
func Banners(rn *Runner, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.BannerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), "")
			return
		}
		folder, err := folderName(req.FolderName)
		if err != nil {
			respondError(c, err, "")
			return
		}
		rs, err := rn.Presets.Build(req.Rules())
		if err != nil {
			respondError(c, err, folder)
			return
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		var cacheKey string
		if cc != nil && req.MaxAge > 0 {
			fingerprint := ""
			if rs != nil {
				fingerprint = rs.Fingerprint()
			}
			cacheKey = cache.Key(req.URL, fingerprint, req.FolderName)
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Run ──────────────────────────────────────────────────
		resp, err := rn.Run(c.Request.Context(), req.URL, folder, rs)
		if err != nil {
			c.JSON(mapErrorToStatus(models.AsScrapeError(err)), resp)
			return
		}

		// ── 4. Cache store ──────────────────────────────────────────
		if cacheKey != "" {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// respondError writes a failed BannerResponse with the mapped status code.
func respondError(c *gin.Context, err error, folder string) {
	se := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.BannerResponse{
		Success:    false,
		Message:    se.Message,
		FolderName: folder,
		Images:     []models.ImageEntry{},
		Error:      se.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeNoImages, models.ErrCodeNoMatches, models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeNetwork:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError // 500
	}
}
