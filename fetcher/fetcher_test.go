package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/super-dl/super-dl/config"
	"github.com/super-dl/super-dl/engine"
	"github.com/super-dl/super-dl/models"
)

func testFetcher(maxRetries int) *Fetcher {
	d := engine.NewDispatcher(
		[]engine.Engine{engine.NewHTTPEngine(1 << 20)},
		[]time.Duration{0},
		nil,
	)
	return New(d, config.FetchConfig{
		DefaultTimeout: 10 * time.Second,
		MaxTimeout:     30 * time.Second,
		MaxRetries:     maxRetries,
		RetryBaseDelay: 10 * time.Millisecond,
		MaxBodyBytes:   1 << 20,
	})
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		wantErr bool
	}{
		{"https", "https://example.com/post", false},
		{"http", "http://example.com/", false},
		{"ftp scheme", "ftp://example.com/file", true},
		{"no scheme", "example.com/post", true},
		{"no host", "https:///post", true},
		{"garbage", "://nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateURL(%q) error = %v, wantErr %v", tt.rawURL, err, tt.wantErr)
			}
			if err != nil && models.CodeOf(err) != models.ErrCodeInvalidInput {
				t.Errorf("code = %q, want %q", models.CodeOf(err), models.ErrCodeInvalidInput)
			}
		})
	}
}

func TestFetch_ReturnsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>Fixture</title></head><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := testFetcher(0)
	page, err := f.Fetch(context.Background(), srv.URL+"/post", Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", page.StatusCode)
	}
	if page.Title != "Fixture" {
		t.Errorf("Title = %q", page.Title)
	}
	if page.HTML == "" {
		t.Error("empty HTML")
	}
	if page.Engine != "http" {
		t.Errorf("Engine = %q", page.Engine)
	}
}

func TestFetch_ConnectionRefusedIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f := testFetcher(0)
	_, err := f.Fetch(context.Background(), srv.URL+"/post", Options{})
	if models.CodeOf(err) != models.ErrCodeNetwork {
		t.Errorf("code = %q, want %q", models.CodeOf(err), models.ErrCodeNetwork)
	}
}

func TestFetch_StatusErrorNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	f := testFetcher(3)
	_, err := f.Fetch(context.Background(), srv.URL+"/post", Options{})

	dlErr, ok := err.(*models.DownloadError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if dlErr.Code != models.ErrCodeHTTPStatus {
		t.Errorf("code = %q, want %q", dlErr.Code, models.ErrCodeHTTPStatus)
	}
	if dlErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", dlErr.Status)
	}
	if hits != 1 {
		t.Errorf("server hit %d times; HTTP status errors must not be retried", hits)
	}
}

func TestFetch_RetriesTransientFailure(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("not hijackable")
				return
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer srv.Close()

	f := testFetcher(2)
	page, err := f.Fetch(context.Background(), srv.URL+"/post", Options{})
	if err != nil {
		t.Fatalf("Fetch after retry: %v", err)
	}
	if hits < 2 {
		t.Errorf("expected a retry, server hit %d times", hits)
	}
	if page.HTML == "" {
		t.Error("empty HTML after retry")
	}
}

func TestFetch_RenderWithoutBrowserFailsFast(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	f := testFetcher(3)
	_, err := f.Fetch(context.Background(), srv.URL+"/post", Options{Render: true})
	if models.CodeOf(err) != models.ErrCodeInvalidInput {
		t.Errorf("code = %q, want %q", models.CodeOf(err), models.ErrCodeInvalidInput)
	}
	if hits != 0 {
		t.Errorf("server hit %d times; a render miss is not retryable", hits)
	}
}

func TestFetch_InvalidURLRejectedBeforeDispatch(t *testing.T) {
	f := testFetcher(0)
	_, err := f.Fetch(context.Background(), "ftp://example.com/x", Options{})
	if models.CodeOf(err) != models.ErrCodeInvalidInput {
		t.Errorf("code = %q, want %q", models.CodeOf(err), models.ErrCodeInvalidInput)
	}
}
