package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/browser"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/cache"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/config"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/harvester"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/parser"
)

// Harvest returns a handler for POST /api/v1/harvest.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup (maxAge > 0 only).
//  3. Open a dedicated page, scroll-harvest → Snapshot   (records harvest_ms)
//  4. Extract records from the snapshot                   (records parse_ms)
//  5. Fill Timing, cache, return 200.
func Harvest(b *browser.Browser, cfg *config.Config, cc *cache.Cache) gin.HandlerFunc {
	baseExclusions := parser.LoadExclusions(cfg.Parser.ExclusionFile)
	extractor := parser.New(cfg.Parser)
	policy := harvester.PolicyFromConfig(cfg.Harvester)

	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.HarvestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.HarvestResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		cacheKey := cache.Key(req.UID, req.Exclusions)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				resp := *cached
				resp.CacheStatus = "hit"
				resp.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, resp)
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(),
			time.Duration(req.Timeout)*time.Second)
		defer cancel()

		driver, err := b.NewDriver(ctx)
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}
		defer driver.Close()

		harvestStart := time.Now()
		snap, err := harvester.New(driver, policy).Harvest(ctx, req.UID)
		harvestMs := time.Since(harvestStart).Milliseconds()
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				HarvestMs: harvestMs,
			})
			return
		}

		exclusions := make(parser.ExclusionList, 0, len(baseExclusions)+len(req.Exclusions))
		exclusions = append(exclusions, baseExclusions...)
		exclusions = append(exclusions, req.Exclusions...)

		parseStart := time.Now()
		records, err := extractor.Extract(snap, exclusions)
		parseMs := time.Since(parseStart).Milliseconds()
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				HarvestMs: harvestMs,
				ParseMs:   parseMs,
			})
			return
		}

		resp := models.HarvestResponse{
			Success:     true,
			UID:         snap.UID,
			DisplayName: snap.DisplayName,
			SourceURL:   snap.SourceURL,
			CapturedAt:  snap.CapturedAt,
			Records:     records,
			RecordCount: len(records),
			CacheStatus: "miss",
			Timing: models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				HarvestMs: harvestMs,
				ParseMs:   parseMs,
			},
		}
		if cc != nil {
			cc.Set(cacheKey, &resp)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps internal error codes to HTTP statuses.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var cerr *models.CrawlError
	if !errors.As(err, &cerr) {
		cerr = models.NewCrawlError(models.ErrCodeInternal, err.Error(), err)
	}

	status := http.StatusInternalServerError
	switch cerr.Code {
	case models.ErrCodeBootTimeout, models.ErrCodeCancelled:
		status = http.StatusGatewayTimeout
	case models.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case models.ErrCodeDriverFault, models.ErrCodeBrowserCrash:
		status = http.StatusBadGateway
	}

	c.JSON(status, models.HarvestResponse{
		Success: false,
		Error:   cerr.ToDetail(),
		Timing:  timing,
	})
}
