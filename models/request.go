package models

// DownloadRequest describes one page-to-file download job. It is both the
// CLI's internal request shape and the payload for POST /api/v1/download.
type DownloadRequest struct {
	// URL is the page to download from. Required, absolute, http or https.
	URL string `json:"url" binding:"required,url"`

	// Site selects the extractor to use. Empty means infer from the URL
	// hostname against the registered host patterns.
	Site string `json:"site,omitempty"`

	// OutputPath is where the video is written. Empty means derive a
	// filename from the media URL in the current directory.
	OutputPath string `json:"output_path,omitempty"`

	// Timeout is the maximum duration in seconds for fetching the page.
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Render forces the headless-browser engine for the page fetch.
	// Default: false (HTTP first, browser only on escalation).
	Render bool `json:"render,omitempty"`

	// Selector is an optional CSS selector; when set, extraction only
	// scans the matched elements' HTML.
	Selector string `json:"selector,omitempty"`

	// Referer overrides the Referer header sent with the page fetch and
	// the media download. Empty means the page's own origin.
	Referer string `json:"referer,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *DownloadRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
}

// ExtractRequest is the payload for POST /api/v1/extract. Same knobs as a
// download minus the output path.
type ExtractRequest struct {
	URL      string `json:"url" binding:"required,url"`
	Site     string `json:"site,omitempty"`
	Timeout  int    `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
	Render   bool   `json:"render,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
}
