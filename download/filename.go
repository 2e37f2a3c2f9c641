package download

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// DeriveFilename produces the default output filename for a media URL: the
// last path segment, sanitized, with an .mp4 suffix ensured. The page URL's
// last segment is the fallback when the media URL carries no usable name
// (common for playlist URLs like /hls/master.m3u8). The result is
// deterministic for the same inputs.
func DeriveFilename(mediaURL, pageURL string) string {
	name := lastSegment(mediaURL)
	if name == "" || strings.HasSuffix(strings.ToLower(name), ".m3u8") {
		if pageName := lastSegment(pageURL); pageName != "" {
			name = pageName
		}
	}
	if name == "" {
		name = "video"
	}

	name = reUnsafe.ReplaceAllString(name, "-")
	if strings.HasSuffix(strings.ToLower(name), ".m3u8") {
		name = strings.TrimSuffix(name, path.Ext(name))
	}
	if !strings.HasSuffix(strings.ToLower(name), ".mp4") {
		name += ".mp4"
	}
	return name
}

// lastSegment returns the final, non-empty path segment of rawURL without
// its query string, or "".
func lastSegment(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	seg := path.Base(p)
	if seg == "." || seg == "/" {
		return ""
	}
	return seg
}
