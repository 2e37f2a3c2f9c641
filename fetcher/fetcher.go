// Package fetcher retrieves page HTML through the engine dispatcher and
// maps transport failures onto the download error taxonomy.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"time"

	"github.com/super-dl/super-dl/config"
	"github.com/super-dl/super-dl/engine"
	"github.com/super-dl/super-dl/models"
)

// Fetcher is the page-fetch front end. It validates the URL, applies the
// request deadline, retries transient network failures with exponential
// backoff, and classifies errors. Safe for concurrent use.
type Fetcher struct {
	dispatcher *engine.Dispatcher
	cfg        config.FetchConfig
}

// Options tune a single fetch.
type Options struct {
	// Referer is sent with the request; empty means the URL's own origin.
	Referer string

	// Render forces the browser engine.
	Render bool

	// Timeout overrides the configured default when positive.
	Timeout time.Duration
}

// New creates a Fetcher on top of the given dispatcher.
func New(d *engine.Dispatcher, cfg config.FetchConfig) *Fetcher {
	return &Fetcher{dispatcher: d, cfg: cfg}
}

// ValidateURL checks that rawURL is an absolute http or https URL and
// returns the parsed form.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, models.NewDownloadError(models.ErrCodeInvalidInput,
			fmt.Sprintf("malformed URL %q", rawURL), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, models.NewDownloadError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unsupported URL scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return nil, models.NewDownloadError(models.ErrCodeInvalidInput,
			fmt.Sprintf("URL %q has no host", rawURL), nil)
	}
	return u, nil
}

// Fetch retrieves the page at pageURL. Connectivity failures come back as
// NETWORK_FAILED, non-2xx responses as HTTP_STATUS; the two are never
// conflated with extraction failures downstream.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, opts Options) (*models.PageResult, error) {
	u, err := ValidateURL(pageURL)
	if err != nil {
		return nil, err
	}

	referer := opts.Referer
	if referer == "" {
		referer = u.Scheme + "://" + u.Host + "/"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.cfg.DefaultTimeout
	}
	if timeout > f.cfg.MaxTimeout {
		timeout = f.cfg.MaxTimeout
	}

	req := &engine.FetchRequest{
		URL:     pageURL,
		Referer: referer,
		Render:  opts.Render,
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(f.cfg.RetryBaseDelay, attempt)
			slog.Debug("retrying fetch", "url", pageURL, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, networkErr(pageURL, ctx.Err())
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := f.dispatcher.Dispatch(attemptCtx, req)
		cancel()

		if err == nil {
			return &models.PageResult{
				URL:        result.FinalURL,
				HTML:       result.HTML,
				Title:      result.Title,
				StatusCode: result.StatusCode,
				Engine:     result.EngineName,
			}, nil
		}

		var se *engine.StatusError
		if errors.As(err, &se) {
			// A definitive server answer; retrying won't change it.
			return nil, models.NewHTTPStatusError(se.Status,
				fmt.Sprintf("server returned HTTP %d for %s", se.Status, pageURL))
		}
		if errors.Is(err, engine.ErrRenderUnavailable) {
			// Configuration problem, not a flaky network; no amount of
			// retrying will conjure up a browser engine.
			return nil, models.NewDownloadError(models.ErrCodeInvalidInput,
				"rendering requested but no browser engine is configured", err)
		}
		if ctx.Err() != nil {
			return nil, networkErr(pageURL, err)
		}
		lastErr = err
	}

	return nil, networkErr(pageURL, lastErr)
}

func networkErr(pageURL string, err error) *models.DownloadError {
	return models.NewDownloadError(models.ErrCodeNetwork,
		fmt.Sprintf("fetching %s failed", pageURL), err)
}

// backoffDelay doubles the base delay per attempt and adds up to 50% jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base << (attempt - 1)
	return delay + time.Duration(rand.Int63n(int64(delay)/2+1))
}
