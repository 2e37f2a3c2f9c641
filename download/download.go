// Package download streams a resolved media reference to local disk.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/super-dl/super-dl/config"
	"github.com/super-dl/super-dl/models"
)

const downloadUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Downloader writes media files to disk. Direct files stream over HTTP;
// HLS playlists are remuxed into an mp4 container via ffmpeg. Safe for
// concurrent use.
type Downloader struct {
	client *http.Client
	cfg    config.DownloadConfig
}

// New creates a Downloader.
func New(cfg config.DownloadConfig) *Downloader {
	return &Downloader{
		client: &http.Client{},
		cfg:    cfg,
	}
}

// Download fetches ref and writes it to outputPath. When outputPath is
// empty, a deterministic filename is derived from the media URL (falling
// back to the page URL) inside the configured output directory.
//
// The file handle is scoped to this call: data streams into a .part file
// that is fsynced and renamed into place on success, and removed on any
// failure, so a crashed or cancelled download never leaves a plausible-
// looking partial video behind.
func (d *Downloader) Download(ctx context.Context, ref *models.MediaReference, outputPath string) (*models.DownloadOutcome, error) {
	if ref == nil || ref.URL == "" {
		return nil, models.NewDownloadError(models.ErrCodeInvalidInput, "no media reference to download", nil)
	}

	if outputPath == "" {
		outputPath = filepath.Join(d.cfg.OutputDir, DeriveFilename(ref.URL, ref.Referer))
	}
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, models.NewDownloadError(models.ErrCodeIO,
				fmt.Sprintf("creating output directory %s", dir), err)
		}
	}

	start := time.Now()

	var outcome *models.DownloadOutcome
	var err error
	if ref.Kind == models.MediaKindHLS {
		outcome, err = d.downloadHLS(ctx, ref, outputPath)
	} else {
		outcome, err = d.downloadDirect(ctx, ref, outputPath)
	}
	if err != nil {
		return nil, err
	}

	outcome.Duration = time.Since(start)
	outcome.DurationMs = outcome.Duration.Milliseconds()
	slog.Info("download complete",
		"path", outcome.OutputPath,
		"bytes", outcome.BytesWritten,
		"duration", outcome.Duration.Round(time.Millisecond),
	)
	return outcome, nil
}

func (d *Downloader) downloadDirect(ctx context.Context, ref *models.MediaReference, outputPath string) (*models.DownloadOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	mediaURL := ref.URL
	if d.cfg.CacheBuster {
		mediaURL = appendCacheBuster(mediaURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, models.NewDownloadError(models.ErrCodeInvalidInput,
			fmt.Sprintf("building media request for %s", ref.URL), err)
	}
	req.Header.Set("User-Agent", downloadUA)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if ref.Referer != "" {
		req.Header.Set("Referer", ref.Referer)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, models.NewDownloadError(models.ErrCodeNetwork,
			fmt.Sprintf("requesting media %s", ref.URL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, models.NewHTTPStatusError(resp.StatusCode,
			fmt.Sprintf("media host returned HTTP %d for %s", resp.StatusCode, ref.URL))
	}

	written, err := streamToFile(resp.Body, outputPath)
	if err != nil {
		return nil, err
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		// Rename already happened; a truncated transfer must not leave
		// the short file posing as the real one.
		_ = os.Remove(outputPath)
		return nil, models.NewDownloadError(models.ErrCodeNetwork,
			fmt.Sprintf("truncated transfer: got %d of %d bytes", written, resp.ContentLength), nil)
	}

	return &models.DownloadOutcome{
		BytesWritten: written,
		OutputPath:   outputPath,
		MediaURL:     ref.URL,
	}, nil
}

// streamToFile copies src into outputPath through a .part staging file.
// Write-side failures report IO_FAILED; read-side failures report
// NETWORK_FAILED. The staging file is removed on every error path.
func streamToFile(src io.Reader, outputPath string) (int64, error) {
	partPath := outputPath + ".part"
	f, err := os.Create(partPath)
	if err != nil {
		return 0, models.NewDownloadError(models.ErrCodeIO,
			fmt.Sprintf("creating %s", partPath), err)
	}

	fail := func(code, msg string, cause error) (int64, error) {
		f.Close()
		os.Remove(partPath)
		return 0, models.NewDownloadError(code, msg, cause)
	}

	dst := &trackingWriter{w: f}
	written, err := io.Copy(dst, src)
	if err != nil {
		if dst.writeErr != nil {
			return fail(models.ErrCodeIO, fmt.Sprintf("writing %s", partPath), dst.writeErr)
		}
		return fail(models.ErrCodeNetwork, "media transfer interrupted", err)
	}

	if err := f.Sync(); err != nil {
		return fail(models.ErrCodeIO, fmt.Sprintf("syncing %s", partPath), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(partPath)
		return 0, models.NewDownloadError(models.ErrCodeIO,
			fmt.Sprintf("closing %s", partPath), err)
	}
	if err := os.Rename(partPath, outputPath); err != nil {
		os.Remove(partPath)
		return 0, models.NewDownloadError(models.ErrCodeIO,
			fmt.Sprintf("renaming %s into place", partPath), err)
	}
	return written, nil
}

// trackingWriter records whether a copy failure originated on the write
// side, so io.Copy errors can be classified as IO vs network.
type trackingWriter struct {
	w        io.Writer
	writeErr error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.writeErr = err
	}
	return n, err
}

// appendCacheBuster adds a random rnd=<int> query parameter. Some media
// CDNs serve stale or truncated responses to repeated plain URLs.
func appendCacheBuster(mediaURL string) string {
	rnd := rand.Int63n(9e13) + 1e12
	sep := "?"
	for _, c := range mediaURL {
		if c == '?' {
			sep = "&"
			break
		}
	}
	return fmt.Sprintf("%s%srnd=%d", mediaURL, sep, rnd)
}
