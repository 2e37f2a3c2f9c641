package download

import "testing"

func TestDeriveFilename(t *testing.T) {
	tests := []struct {
		name     string
		mediaURL string
		pageURL  string
		want     string
	}{
		{
			"simple mp4",
			"https://cdn.example.com/media/clip.mp4",
			"https://example.com/post",
			"clip.mp4",
		},
		{
			"query string dropped",
			"https://cdn.example.com/media/clip.mp4?rnd=123&tk=abc",
			"https://example.com/post",
			"clip.mp4",
		},
		{
			"trailing slash",
			"https://host.example/get_file/1/ab/123/123.mp4/",
			"https://host.example/video/123",
			"123.mp4",
		},
		{
			"unsafe characters sanitized",
			"https://cdn.example.com/my clip (1).mp4",
			"https://example.com/post",
			"my-clip--1-.mp4",
		},
		{
			"missing extension gains mp4",
			"https://cdn.example.com/files/42",
			"https://example.com/post",
			"42.mp4",
		},
		{
			"playlist name falls back to page segment",
			"https://stream.example.com/hls/master.m3u8",
			"https://example.com/watch/awesome-clip",
			"awesome-clip.mp4",
		},
		{
			"no usable segment anywhere",
			"https://cdn.example.com/",
			"https://example.com/",
			"video.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveFilename(tt.mediaURL, tt.pageURL)
			if got != tt.want {
				t.Errorf("DeriveFilename(%q, %q) = %q, want %q", tt.mediaURL, tt.pageURL, got, tt.want)
			}
		})
	}
}

func TestDeriveFilename_Deterministic(t *testing.T) {
	a := DeriveFilename("https://cdn.example.com/media/clip.mp4", "https://example.com/post")
	b := DeriveFilename("https://cdn.example.com/media/clip.mp4", "https://example.com/post")
	if a != b {
		t.Errorf("same inputs produced different names: %q vs %q", a, b)
	}
}
