package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/bannergrab/banner"
	"github.com/use-agent/bannergrab/config"
	"github.com/use-agent/bannergrab/models"
	"github.com/use-agent/bannergrab/webhook"
)

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	// Background goroutine to expire batch jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				job := value.(*models.BatchJob)
				if job.CreatedAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostBatch returns a handler for POST /api/v1/banners/batch.
// It validates the request, creates a batch job, and runs every URL in
// the background under cfg.Concurrency.
func PostBatch(rn *Runner, cfg config.BatchConfig, n *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), "")
			return
		}
		if cfg.MaxURLs > 0 && len(req.URLs) > cfg.MaxURLs {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("maximum %d URLs per batch", cfg.MaxURLs), nil), "")
			return
		}
		rs, err := rn.Presets.Build(req.Rules)
		if err != nil {
			respondError(c, err, "")
			return
		}

		job := models.NewBatchJob(uuid.NewString(), len(req.URLs), time.Now().Unix())
		batchStore.Store(job.ID, job)

		go runBatch(rn, cfg.Concurrency, n, job, req, rs)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.ID,
			Status: models.BatchProcessing,
			Total:  job.Total,
		})
	}
}

// GetBatch returns a handler for GET /api/v1/banners/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := batchStore.Load(c.Param("id"))
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "batch job not found", nil), "")
			return
		}
		c.JSON(http.StatusOK, val.(*models.BatchJob).Snapshot())
	}
}

// runBatch processes all URLs of job with concurrency limited by a
// semaphore. URL i writes into <job id>/<i>.
func runBatch(rn *Runner, concurrency int, n *webhook.Notifier, job *models.BatchJob, req models.BatchRequest, rs *banner.Ruleset) {
	if concurrency <= 0 {
		concurrency = 4
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i, targetURL := range req.URLs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			folder := path.Join(job.ID, fmt.Sprint(i))
			resp, err := rn.Run(context.Background(), targetURL, folder, rs)
			if err != nil {
				slog.Warn("batch url failed", "id", job.ID, "url", targetURL, "error", err)
			}
			job.Record(i, resp)
		}()
	}
	wg.Wait()

	status := job.Finish()
	slog.Info("batch job finished", "id", job.ID, "status", status, "total", job.Total)

	if req.WebhookURL != "" && n != nil {
		n.DeliverAsync(req.WebhookURL, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data:      job.Snapshot(),
		})
	}
}
