// Package pipeline wires fetch, extraction, and download into the single
// synchronous sequence one invocation runs: fetch the page, locate the
// media reference, stream it to disk. Errors are terminal; there is no
// partial-success state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/super-dl/super-dl/cache"
	"github.com/super-dl/super-dl/download"
	"github.com/super-dl/super-dl/fetcher"
	"github.com/super-dl/super-dl/models"
	"github.com/super-dl/super-dl/sites"
)

// Pipeline runs the fetch → extract → download sequence. The page cache is
// optional; when present (serve mode), repeated extract+download of the
// same page fetches the origin once.
type Pipeline struct {
	fetcher    *fetcher.Fetcher
	downloader *download.Downloader
	pages      *cache.Cache
}

// New creates a Pipeline. pages may be nil to disable page caching.
func New(f *fetcher.Fetcher, d *download.Downloader, pages *cache.Cache) *Pipeline {
	return &Pipeline{fetcher: f, downloader: d, pages: pages}
}

// ResolveExtractor picks the extractor for a request: the explicitly named
// site when given, otherwise hostname inference against the registered
// host patterns.
func ResolveExtractor(site, pageURL string) (sites.Extractor, error) {
	if site != "" {
		e, ok := sites.Lookup(site)
		if !ok {
			return nil, models.NewDownloadError(models.ErrCodeUnsupported,
				fmt.Sprintf("unknown site %q (known: %v)", site, sites.Names()), nil)
		}
		return e, nil
	}

	u, err := fetcher.ValidateURL(pageURL)
	if err != nil {
		return nil, err
	}
	e, ok := sites.Infer(u)
	if !ok {
		return nil, models.NewDownloadError(models.ErrCodeUnsupported,
			fmt.Sprintf("could not determine site for %s; pass --site (known: %v)", u.Hostname(), sites.Names()), nil)
	}
	slog.Debug("inferred site from hostname", "host", u.Hostname(), "site", e.Name())
	return e, nil
}

// Extract fetches the page and resolves its media reference without
// downloading anything.
func (p *Pipeline) Extract(ctx context.Context, req *models.ExtractRequest) (*models.MediaReference, *models.PageResult, error) {
	req.Defaults()

	ext, err := ResolveExtractor(req.Site, req.URL)
	if err != nil {
		return nil, nil, err
	}

	page, err := p.fetchPage(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	html := page.HTML
	if req.Selector != "" {
		filtered, selErr := sites.ApplySelector(html, req.Selector)
		if selErr != nil {
			return nil, nil, models.NewDownloadError(models.ErrCodeInvalidInput,
				fmt.Sprintf("bad selector %q", req.Selector), selErr)
		}
		html = filtered
	}

	baseURL, err := url.Parse(page.URL)
	if err != nil {
		baseURL, _ = url.Parse(req.URL)
	}

	pg := &sites.Page{URL: baseURL, HTML: html, Title: page.Title}
	ref, err := ext.Extract(ctx, pg, p.secondaryFetch(req))
	if err != nil {
		return nil, page, err
	}

	slog.Info("media reference resolved",
		"page", req.URL,
		"media", ref.URL,
		"kind", ref.Kind,
		"extractor", ref.Extractor,
	)
	return ref, page, nil
}

// Run executes the full pipeline for one download request.
func (p *Pipeline) Run(ctx context.Context, req *models.DownloadRequest) (*models.DownloadOutcome, *models.MediaReference, error) {
	req.Defaults()

	ref, _, err := p.Extract(ctx, &models.ExtractRequest{
		URL:      req.URL,
		Site:     req.Site,
		Timeout:  req.Timeout,
		Render:   req.Render,
		Selector: req.Selector,
	})
	if err != nil {
		return nil, nil, err
	}
	if req.Referer != "" {
		ref.Referer = req.Referer
	}

	outcome, err := p.downloader.Download(ctx, ref, req.OutputPath)
	if err != nil {
		return nil, ref, err
	}
	return outcome, ref, nil
}

// fetchPage fetches through the cache when one is configured.
func (p *Pipeline) fetchPage(ctx context.Context, req *models.ExtractRequest) (*models.PageResult, error) {
	var key string
	if p.pages != nil {
		key = cache.Key(req.URL, "")
		if page, hit := p.pages.Get(key); hit {
			slog.Debug("page cache hit", "url", req.URL)
			return page, nil
		}
	}

	page, err := p.fetcher.Fetch(ctx, req.URL, fetcher.Options{
		Render:  req.Render,
		Timeout: time.Duration(req.Timeout) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	if p.pages != nil {
		p.pages.Set(key, page)
	}
	return page, nil
}

// secondaryFetch provides extractors a way to fetch embed documents
// (iframes) with the embedding page as referer.
func (p *Pipeline) secondaryFetch(req *models.ExtractRequest) sites.FetchFunc {
	return func(ctx context.Context, pageURL, referer string) (string, error) {
		page, err := p.fetcher.Fetch(ctx, pageURL, fetcher.Options{
			Referer: referer,
			Render:  req.Render,
			Timeout: time.Duration(req.Timeout) * time.Second,
		})
		if err != nil {
			return "", err
		}
		return page.HTML, nil
	}
}
