package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseSiteBindings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string][]string
	}{
		{"empty", "", nil},
		{
			"single binding",
			"kvs=videohost.example",
			map[string][]string{"kvs": {"videohost.example"}},
		},
		{
			"multiple hosts and extractors",
			"kvs=videohost.example,mirror.example;htmlvideo=clips.example.net",
			map[string][]string{
				"kvs":       {"videohost.example", "mirror.example"},
				"htmlvideo": {"clips.example.net"},
			},
		},
		{
			"whitespace and case normalised",
			" kvs = VideoHost.Example , Mirror.Example ",
			map[string][]string{"kvs": {"videohost.example", "mirror.example"}},
		},
		{
			"malformed segments skipped",
			";=host;noequals;kvs=ok.example;",
			map[string][]string{"kvs": {"ok.example"}},
		},
		{"all malformed", "garbage;more garbage", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSiteBindings(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseSiteBindings(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Fetch.DefaultTimeout != 30*time.Second {
		t.Errorf("DefaultTimeout = %v", cfg.Fetch.DefaultTimeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Download.FfmpegBin != "ffmpeg" {
		t.Errorf("FfmpegBin = %q", cfg.Download.FfmpegBin)
	}
	if !cfg.Download.CacheBuster {
		t.Error("CacheBuster should default to true")
	}
	if cfg.Engine.EnableRender {
		t.Error("EnableRender should default to false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SUPERDL_PORT", "9000")
	t.Setenv("SUPERDL_LOG_LEVEL", "debug")
	t.Setenv("SUPERDL_DOWNLOAD_TIMEOUT", "5m")
	t.Setenv("SUPERDL_SITES", "kvs=videohost.example")

	cfg := Load()
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Download.Timeout != 5*time.Minute {
		t.Errorf("Download.Timeout = %v", cfg.Download.Timeout)
	}
	if got := cfg.Sites.Bindings["kvs"]; len(got) != 1 || got[0] != "videohost.example" {
		t.Errorf("Sites.Bindings = %v", cfg.Sites.Bindings)
	}
}

func TestEnvHelpers_BadValuesFallBack(t *testing.T) {
	t.Setenv("SUPERDL_TEST_INT", "not-a-number")
	if got := envIntOr("SUPERDL_TEST_INT", 7); got != 7 {
		t.Errorf("envIntOr = %d, want fallback 7", got)
	}

	t.Setenv("SUPERDL_TEST_DUR", "not-a-duration")
	if got := envDurationOr("SUPERDL_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("envDurationOr = %v, want fallback 1m", got)
	}

	t.Setenv("SUPERDL_TEST_BOOL", "maybe")
	if got := envBoolOr("SUPERDL_TEST_BOOL", true); !got {
		t.Error("envBoolOr should fall back to true")
	}
}

func TestEnvDurationSliceOr(t *testing.T) {
	t.Setenv("SUPERDL_TEST_DELAYS", "0s, 3s ,10s")
	got := envDurationSliceOr("SUPERDL_TEST_DELAYS", nil)
	want := []time.Duration{0, 3 * time.Second, 10 * time.Second}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envDurationSliceOr = %v, want %v", got, want)
	}
}
