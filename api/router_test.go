package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/super-dl/super-dl/cache"
	"github.com/super-dl/super-dl/config"
	"github.com/super-dl/super-dl/download"
	"github.com/super-dl/super-dl/engine"
	"github.com/super-dl/super-dl/fetcher"
	"github.com/super-dl/super-dl/models"
	"github.com/super-dl/super-dl/pipeline"
)

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

func testRouter(t *testing.T, cfg *config.Config) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()

	d := engine.NewDispatcher(
		[]engine.Engine{engine.NewHTTPEngine(1 << 20)},
		[]time.Duration{0},
		nil,
	)
	f := fetcher.New(d, config.FetchConfig{
		DefaultTimeout: 10 * time.Second,
		MaxTimeout:     30 * time.Second,
		MaxBodyBytes:   1 << 20,
	})
	dl := download.New(config.DownloadConfig{
		Timeout:   30 * time.Second,
		OutputDir: dir,
	})
	p := pipeline.New(f, dl, cache.New(16, time.Minute))

	return NewRouter(p, nil, cfg, time.Now()), dir
}

func postJSON(t *testing.T, router http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q", resp.Status)
	}
	if len(resp.Sites) == 0 {
		t.Error("no extractors listed")
	}
}

func TestSitesEndpoint(t *testing.T) {
	router, _ := testRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sites", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var infos []models.SiteInfo
	if err := json.Unmarshal(w.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, info := range infos {
		if info.Name == "generic" {
			found = true
		}
	}
	if !found {
		t.Error("generic extractor missing from sites listing")
	}
}

func TestExtractEndpoint(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<video src="https://cdn.example.com/clip.mp4"></video>`))
	}))
	defer origin.Close()

	router, _ := testRouter(t, testConfig())
	w := postJSON(t, router, "/api/v1/extract",
		map[string]any{"url": origin.URL + "/post", "site": "generic"}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.ExtractResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Media == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Media.URL != "https://cdn.example.com/clip.mp4" {
		t.Errorf("media URL = %q", resp.Media.URL)
	}
}

func TestExtractEndpoint_NoMedia(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>nothing</body></html>"))
	}))
	defer origin.Close()

	router, _ := testRouter(t, testConfig())
	w := postJSON(t, router, "/api/v1/extract",
		map[string]any{"url": origin.URL + "/post", "site": "generic"}, nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp models.ExtractResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeExtraction {
		t.Errorf("error = %+v, want EXTRACTION_FAILED", resp.Error)
	}
}

func TestExtractEndpoint_UnknownSite(t *testing.T) {
	router, _ := testRouter(t, testConfig())
	w := postJSON(t, router, "/api/v1/extract",
		map[string]any{"url": "https://example.com/post", "site": "nope"}, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestExtractEndpoint_MissingURL(t *testing.T) {
	router, _ := testRouter(t, testConfig())
	w := postJSON(t, router, "/api/v1/extract", map[string]any{"site": "generic"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDownloadEndpoint(t *testing.T) {
	content := []byte("video-bytes")
	mux := http.NewServeMux()
	origin := httptest.NewServer(mux)
	defer origin.Close()

	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<video src="%s/clip.mp4"></video>`, origin.URL)
	})
	mux.HandleFunc("/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	})

	router, _ := testRouter(t, testConfig())
	w := postJSON(t, router, "/api/v1/download",
		map[string]any{"url": origin.URL + "/post", "site": "generic"}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.DownloadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Outcome == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Outcome.BytesWritten != int64(len(content)) {
		t.Errorf("BytesWritten = %d, want %d", resp.Outcome.BytesWritten, len(content))
	}
	if _, err := os.Stat(resp.Outcome.OutputPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestAuth_MissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret-key"}
	router, _ := testRouter(t, cfg)

	w := postJSON(t, router, "/api/v1/extract",
		map[string]any{"url": "https://example.com/x", "site": "generic"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ValidKeyHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret-key"}
	router, _ := testRouter(t, cfg)

	// Invalid request body still means the key itself was accepted when
	// the status is 400 rather than 401.
	for name, headers := range map[string]map[string]string{
		"x-api-key": {"X-API-Key": "secret-key"},
		"bearer":    {"Authorization": "Bearer secret-key"},
	} {
		w := postJSON(t, router, "/api/v1/extract", map[string]any{}, headers)
		if w.Code == http.StatusUnauthorized {
			t.Errorf("%s: valid key rejected", name)
		}
	}

	w := postJSON(t, router, "/api/v1/extract", map[string]any{},
		map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid key accepted: status %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 0.1
	cfg.RateLimit.Burst = 2
	router, _ := testRouter(t, cfg)

	var limited bool
	for i := 0; i < 5; i++ {
		w := postJSON(t, router, "/api/v1/extract", map[string]any{}, nil)
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("burst of requests never hit the rate limit")
	}

	// Health stays outside the limiter.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}
