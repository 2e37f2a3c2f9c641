package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/super-dl/super-dl/models"
	"github.com/super-dl/super-dl/sites"
)

// Version is the build version reported by the health endpoint and the CLI.
const Version = "0.3.0"

// Health returns a handler for GET /api/v1/health.
func Health(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
			Sites:   sites.Names(),
		})
	}
}

// Sites returns a handler for GET /api/v1/sites, listing the registered
// extractors and their bound host patterns.
func Sites() gin.HandlerFunc {
	return func(c *gin.Context) {
		names := sites.Names()
		infos := make([]models.SiteInfo, 0, len(names))
		for _, name := range names {
			infos = append(infos, models.SiteInfo{
				Name:  name,
				Hosts: sites.HostsOf(name),
			})
		}
		c.JSON(http.StatusOK, infos)
	}
}
