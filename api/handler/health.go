package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/browser"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
)

// Health returns a handler for GET /api/v1/health.
func Health(b *browser.Browser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := b.ActivePages()

		status := "healthy"
		if active > 3 {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         status,
			Uptime:         time.Since(startTime).Round(time.Second).String(),
			ActiveHarvests: active,
			Version:        "0.1.0",
		})
	}
}
