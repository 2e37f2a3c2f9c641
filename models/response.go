package models

// TimingInfo breaks down where a request spent its time.
type TimingInfo struct {
	TotalMs    int64 `json:"total_ms"`
	FetchMs    int64 `json:"fetch_ms,omitempty"`
	ExtractMs  int64 `json:"extract_ms,omitempty"`
	DownloadMs int64 `json:"download_ms,omitempty"`
}

// ExtractResponse is the body for POST /api/v1/extract.
type ExtractResponse struct {
	Success bool            `json:"success"`
	Media   *MediaReference `json:"media,omitempty"`
	Page    *PageResult     `json:"page,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
	Timing  TimingInfo      `json:"timing"`

	// CacheStatus is "hit", "miss", or empty when caching was not consulted.
	CacheStatus string `json:"cache_status,omitempty"`
}

// DownloadResponse is the body for POST /api/v1/download.
type DownloadResponse struct {
	Success bool             `json:"success"`
	Outcome *DownloadOutcome `json:"outcome,omitempty"`
	Media   *MediaReference  `json:"media,omitempty"`
	Error   *ErrorDetail     `json:"error,omitempty"`
	Timing  TimingInfo       `json:"timing"`
}

// SiteInfo describes one registered extractor for GET /api/v1/sites.
type SiteInfo struct {
	Name  string   `json:"name"`
	Hosts []string `json:"hosts,omitempty"`
}

// HealthResponse is the body for GET /api/v1/health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Version string   `json:"version"`
	Sites   []string `json:"sites"`
}
