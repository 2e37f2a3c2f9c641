package models

import "time"

// Media kinds. Direct files are streamed to disk; HLS playlists are remuxed
// into an mp4 container via ffmpeg.
const (
	MediaKindMP4 = "mp4"
	MediaKindHLS = "hls"
)

// PageResult is the fetched page handed to extraction.
type PageResult struct {
	// URL is the final page URL after redirects; relative media references
	// resolve against it.
	URL string `json:"url"`

	// HTML is the raw page markup.
	HTML string `json:"-"`

	// Title is the page title, best effort.
	Title string `json:"title,omitempty"`

	// StatusCode is the HTTP status of the page fetch.
	StatusCode int `json:"status_code,omitempty"`

	// Engine records which fetch engine produced the result.
	Engine string `json:"engine,omitempty"`
}

// MediaReference is the resolved, absolute URL of the downloadable video
// resource found within a fetched page.
type MediaReference struct {
	// URL is always absolute.
	URL string `json:"url"`

	// Kind is MediaKindMP4 or MediaKindHLS.
	Kind string `json:"kind"`

	// Referer is the header value the media host expects; usually the page
	// URL or the embedding iframe URL.
	Referer string `json:"referer,omitempty"`

	// Title carries the page title for filename fallbacks and API clients.
	Title string `json:"title,omitempty"`

	// Extractor records which site extractor produced the reference.
	Extractor string `json:"extractor,omitempty"`
}

// DownloadOutcome is the terminal artifact of the pipeline.
type DownloadOutcome struct {
	BytesWritten int64         `json:"bytes_written"`
	OutputPath   string        `json:"output_path"`
	MediaURL     string        `json:"media_url"`
	Duration     time.Duration `json:"-"`
	DurationMs   int64         `json:"duration_ms"`
}
