package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Fetch     FetchConfig
	Engine    EngineConfig
	Browser   BrowserConfig
	Download  DownloadConfig
	Sites     SitesConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// FetchConfig controls page fetching.
type FetchConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// MaxRetries is the number of retries after a transient network
	// failure. HTTP status and extraction errors are never retried.
	MaxRetries int // default: 2

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration // default: 500ms

	// MaxBodyBytes caps how much page HTML is read.
	MaxBodyBytes int64 // default: 20 MB
}

// EngineConfig controls the escalating fetch dispatcher.
type EngineConfig struct {
	// EnableRender allows escalation to the headless-browser engine when
	// the plain HTTP engine fails or the request asks for rendering.
	EnableRender bool // default: false

	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 3s]

	// DomainMemoryTTL is how long a per-domain engine preference is kept.
	DomainMemoryTTL time.Duration // default: 24h
}

// BrowserConfig controls the optional rod browser engine.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 4

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// DownloadConfig controls media downloads.
type DownloadConfig struct {
	// Timeout is the deadline for the whole media transfer.
	Timeout time.Duration // default: 30m

	// OutputDir is where derived filenames land. Default: current dir.
	OutputDir string

	// CacheBuster appends a random rnd=<int> query parameter to media
	// requests; some CDNs serve stale or truncated files without it.
	CacheBuster bool // default: true

	// FfmpegBin is the ffmpeg binary used for HLS remuxing.
	FfmpegBin string // default: "ffmpeg"

	// FfprobeBin is the ffprobe binary path.
	FfprobeBin string // default: "ffprobe"
}

// SitesConfig binds hostnames to extractors at startup.
type SitesConfig struct {
	// Bindings maps extractor name -> host patterns, parsed from
	// SUPERDL_SITES ("kvs=videohost.example;htmlvideo=clips.example.net,media.example").
	Bindings map[string][]string
}

// ServerConfig controls the API server (serve mode).
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// WebhookSecret signs webhook payloads with HMAC-SHA256 when non-empty.
	WebhookSecret string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the fetched-page cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached pages.
	MaxEntries int // default: 256

	// MaxAge is how long a cached page stays valid.
	MaxAge time.Duration // default: 10m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Fetch: FetchConfig{
			DefaultTimeout: envDurationOr("SUPERDL_TIMEOUT", 30*time.Second),
			MaxTimeout:     envDurationOr("SUPERDL_MAX_TIMEOUT", 120*time.Second),
			MaxRetries:     envIntOr("SUPERDL_MAX_RETRIES", 2),
			RetryBaseDelay: envDurationOr("SUPERDL_RETRY_DELAY", 500*time.Millisecond),
			MaxBodyBytes:   int64(envIntOr("SUPERDL_MAX_BODY_BYTES", 20<<20)),
		},
		Engine: EngineConfig{
			EnableRender:     envBoolOr("SUPERDL_RENDER", false),
			EscalationDelays: envDurationSliceOr("SUPERDL_ESCALATION_DELAYS", []time.Duration{0, 3 * time.Second}),
			DomainMemoryTTL:  envDurationOr("SUPERDL_DOMAIN_MEMORY_TTL", 24*time.Hour),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("SUPERDL_HEADLESS", true),
			MaxPages:   envIntOr("SUPERDL_MAX_PAGES", 4),
			NoSandbox:  envBoolOr("SUPERDL_NO_SANDBOX", false),
			BrowserBin: os.Getenv("SUPERDL_BROWSER_BIN"),
		},
		Download: DownloadConfig{
			Timeout:     envDurationOr("SUPERDL_DOWNLOAD_TIMEOUT", 30*time.Minute),
			OutputDir:   os.Getenv("SUPERDL_OUTPUT_DIR"),
			CacheBuster: envBoolOr("SUPERDL_CACHE_BUSTER", true),
			FfmpegBin:   envOr("SUPERDL_FFMPEG_BIN", "ffmpeg"),
			FfprobeBin:  envOr("SUPERDL_FFPROBE_BIN", "ffprobe"),
		},
		Sites: SitesConfig{
			Bindings: parseSiteBindings(os.Getenv("SUPERDL_SITES")),
		},
		Server: ServerConfig{
			Host:          envOr("SUPERDL_HOST", "127.0.0.1"),
			Port:          envIntOr("SUPERDL_PORT", 8080),
			Mode:          envOr("SUPERDL_MODE", "release"),
			WebhookSecret: envOr("SUPERDL_WEBHOOK_SECRET", ""),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SUPERDL_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SUPERDL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SUPERDL_RATE_RPS", 2.0),
			Burst:             envIntOr("SUPERDL_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SUPERDL_CACHE_MAX_ENTRIES", 256),
			MaxAge:     envDurationOr("SUPERDL_CACHE_MAX_AGE", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  envOr("SUPERDL_LOG_LEVEL", "info"),
			Format: envOr("SUPERDL_LOG_FORMAT", "text"),
		},
	}
}

// parseSiteBindings parses "name=host1,host2;name2=host3" into a map.
// Malformed segments are skipped.
func parseSiteBindings(raw string) map[string][]string {
	if raw == "" {
		return nil
	}
	bindings := make(map[string][]string)
	for _, seg := range strings.Split(raw, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		name, hostList, ok := strings.Cut(seg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		var hosts []string
		for _, h := range strings.Split(hostList, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, strings.ToLower(h))
			}
		}
		if len(hosts) > 0 {
			bindings[name] = append(bindings[name], hosts...)
		}
	}
	if len(bindings) == 0 {
		return nil
	}
	return bindings
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
