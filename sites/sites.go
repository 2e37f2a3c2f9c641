// Package sites holds the per-site video extraction rules. Each extractor
// implements one recognisable embedding pattern; hostnames are bound to
// extractors through the registry, so supporting a new site is a matter of
// registering its hosts against an existing strategy (or adding a new one).
package sites

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/super-dl/super-dl/models"
)

// Page is the fetched document handed to an extractor.
type Page struct {
	// URL is the page's final URL; relative references resolve against it.
	URL *url.URL

	// HTML is the document markup (possibly selector-filtered).
	HTML string

	// Title is the page title, used for reference metadata.
	Title string
}

// FetchFunc fetches a secondary document, e.g. an embed iframe. referer is
// the URL of the embedding page.
type FetchFunc func(ctx context.Context, pageURL, referer string) (string, error)

// Extractor locates the downloadable video resource within a fetched page.
// Extract fails with an EXTRACTION_FAILED error when no recognisable
// reference is present; it never reports network failures as such.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, pg *Page, fetch FetchFunc) (*models.MediaReference, error)
}

var (
	mu         sync.RWMutex
	extractors = make(map[string]Extractor)
	hostIndex  = make(map[string]string) // host pattern -> extractor name
)

// Register adds an extractor under its name and optionally binds host
// patterns to it. Called from init funcs and from startup configuration.
func Register(e Extractor, hosts ...string) {
	mu.Lock()
	defer mu.Unlock()
	extractors[e.Name()] = e
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hostIndex[h] = e.Name()
		}
	}
}

// BindHosts binds host patterns to an already-registered extractor.
// Unknown extractor names return an error so configuration typos surface
// at startup rather than as misrouted downloads.
func BindHosts(name string, hosts []string) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := extractors[name]; !ok {
		return fmt.Errorf("sites: no extractor named %q", name)
	}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hostIndex[h] = name
		}
	}
	return nil
}

// Lookup returns the extractor registered under name.
func Lookup(name string) (Extractor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := extractors[strings.ToLower(name)]
	return e, ok
}

// Infer selects an extractor by matching the URL's hostname against the
// bound host patterns. Credentials and a leading www. are ignored; a
// pattern matches any hostname that contains it, so "videohost.example"
// also covers "cdn.videohost.example". When several patterns match, the
// longest wins, with lexicographic order breaking ties, so the choice is
// stable across runs.
func Infer(u *url.URL) (Extractor, bool) {
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	mu.RLock()
	defer mu.RUnlock()

	best := ""
	for pattern := range hostIndex {
		if !strings.Contains(host, pattern) {
			continue
		}
		if len(pattern) > len(best) || (len(pattern) == len(best) && pattern < best) {
			best = pattern
		}
	}
	if best == "" {
		return nil, false
	}
	e, ok := extractors[hostIndex[best]]
	return e, ok
}

// Names returns the registered extractor names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(extractors))
	for name := range extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HostsOf returns the host patterns bound to the named extractor, sorted.
func HostsOf(name string) []string {
	mu.RLock()
	defer mu.RUnlock()
	var hosts []string
	for pattern, n := range hostIndex {
		if n == name {
			hosts = append(hosts, pattern)
		}
	}
	sort.Strings(hosts)
	return hosts
}

// errNoMedia is the shared extraction-failure constructor. Extraction
// failure is the expected outcome when a site changes its markup and must
// stay distinguishable from network failures.
func errNoMedia(extractor string) *models.DownloadError {
	return models.NewDownloadError(models.ErrCodeExtraction,
		fmt.Sprintf("%s: no video reference found in page", extractor), nil)
}

// resolveRef resolves a possibly-relative media URL against the page URL
// and fills in the shared MediaReference fields.
func resolveRef(pg *Page, raw, kind, extractor string) (*models.MediaReference, error) {
	abs, err := resolveURL(pg.URL, raw)
	if err != nil {
		return nil, errNoMedia(extractor)
	}
	return &models.MediaReference{
		URL:       abs,
		Kind:      kind,
		Referer:   pg.URL.String(),
		Title:     pg.Title,
		Extractor: extractor,
	}, nil
}

// resolveURL turns raw into an absolute http(s) URL against base.
func resolveURL(base *url.URL, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", fmt.Errorf("non-http URL %q", abs.String())
	}
	return abs.String(), nil
}

var (
	reMP4  = regexp.MustCompile(`https?://[^\s"'<>]+?\.mp4(?:\?[^\s"'<>]*)?`)
	reM3U8 = regexp.MustCompile(`https?://[^\s"'<>]+?\.m3u8(?:\?[^\s"'<>]*)?`)
)

// firstMP4 returns the first absolute .mp4 URL in the document, or "".
func firstMP4(html string) string {
	return reMP4.FindString(html)
}

// firstM3U8 returns the first absolute .m3u8 URL in the document, or "".
func firstM3U8(html string) string {
	return reM3U8.FindString(html)
}
