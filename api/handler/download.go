package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/super-dl/super-dl/models"
	"github.com/super-dl/super-dl/notify"
	"github.com/super-dl/super-dl/pipeline"
)

// downloadRequest extends the pipeline request with an optional webhook
// that is notified when the server-side download finishes.
type downloadRequest struct {
	models.DownloadRequest
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// Download returns a handler for POST /api/v1/download: run the full
// fetch → extract → download pipeline server-side. The video lands on the
// server's disk; the response carries the output path and byte count.
func Download(p *pipeline.Pipeline, notifier *notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req downloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DownloadResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		outcome, ref, err := p.Run(c.Request.Context(), &req.DownloadRequest)
		timing := models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
		if err != nil {
			respondDownloadError(c, err, timing)
			return
		}

		if req.WebhookURL != "" && notifier != nil {
			notifier.DownloadComplete(req.WebhookURL, outcome)
		}

		c.JSON(http.StatusOK, models.DownloadResponse{
			Success: true,
			Outcome: outcome,
			Media:   ref,
			Timing:  timing,
		})
	}
}
