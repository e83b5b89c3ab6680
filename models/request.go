package models

import "time"

// HarvestRequest is the body of POST /api/v1/harvest.
type HarvestRequest struct {
	// UID is the numeric space.bilibili.com user id.
	UID string `json:"uid" binding:"required"`

	// Timeout is the overall harvest deadline in seconds. 0 means the
	// server default.
	Timeout int `json:"timeout,omitempty"`

	// Exclusions are media-URL substrings to drop from extracted records,
	// merged with the server-side exclusion file.
	Exclusions []string `json:"exclusions,omitempty"`

	// MaxAge is the acceptable cache age in milliseconds. 0 disables the
	// cache lookup for this request.
	MaxAge int `json:"max_age,omitempty"`
}

// Defaults applies server defaults to unset fields.
func (r *HarvestRequest) Defaults() {
	if r.Timeout <= 0 {
		r.Timeout = 300
	}
}

// TimingInfo reports how long the harvest stages took.
type TimingInfo struct {
	TotalMs   int64 `json:"total_ms"`
	HarvestMs int64 `json:"harvest_ms,omitempty"`
	ParseMs   int64 `json:"parse_ms,omitempty"`
}

// HarvestResponse is the body returned by POST /api/v1/harvest.
type HarvestResponse struct {
	Success     bool            `json:"success"`
	UID         string          `json:"uid,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	SourceURL   string          `json:"source_url,omitempty"`
	CapturedAt  time.Time       `json:"captured_at,omitempty"`
	Records     []DynamicRecord `json:"records,omitempty"`
	RecordCount int             `json:"record_count"`
	CacheStatus string          `json:"cache_status,omitempty"`
	Timing      TimingInfo      `json:"timing"`
	Error       *ErrorDetail    `json:"error,omitempty"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	ActiveHarvests int    `json:"active_harvests"`
	Version        string `json:"version"`
}
