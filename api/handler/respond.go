package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/super-dl/super-dl/models"
)

// asDownloadError normalises any error into a DownloadError so handlers
// always emit a structured code. Wrapped DownloadErrors keep their code.
func asDownloadError(err error) *models.DownloadError {
	var de *models.DownloadError
	if errors.As(err, &de) {
		return de
	}
	return models.NewDownloadError(models.ErrCodeInternal, err.Error(), err)
}

// statusFor translates error codes to HTTP status codes.
func statusFor(e *models.DownloadError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput, models.ErrCodeUnsupported:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeExtraction:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeNetwork, models.ErrCodeHTTPStatus:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// respondExtractError writes a structured error for the extract endpoint.
func respondExtractError(c *gin.Context, err error, timing models.TimingInfo) {
	de := asDownloadError(err)
	c.JSON(statusFor(de), models.ExtractResponse{
		Success: false,
		Error:   de.ToDetail(),
		Timing:  timing,
	})
}

// respondDownloadError writes a structured error for the download endpoint.
func respondDownloadError(c *gin.Context, err error, timing models.TimingInfo) {
	de := asDownloadError(err)
	c.JSON(statusFor(de), models.DownloadResponse{
		Success: false,
		Error:   de.ToDetail(),
		Timing:  timing,
	})
}
