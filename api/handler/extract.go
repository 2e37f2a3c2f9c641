package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/super-dl/super-dl/models"
	"github.com/super-dl/super-dl/pipeline"
)

// Extract returns a handler for POST /api/v1/extract: fetch the page,
// resolve the media reference, return it without downloading.
func Extract(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		ref, page, err := p.Extract(c.Request.Context(), &req)
		timing := models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
		if err != nil {
			respondExtractError(c, err, timing)
			return
		}

		c.JSON(http.StatusOK, models.ExtractResponse{
			Success: true,
			Media:   ref,
			Page:    page,
			Timing:  timing,
		})
	}
}
