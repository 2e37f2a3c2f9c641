package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestDownloadError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDownloadError(ErrCodeNetwork, "fetching page failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	wrapped := fmt.Errorf("pipeline: %w", err)
	var de *DownloadError
	if !errors.As(wrapped, &de) {
		t.Fatal("errors.As should find the DownloadError through wrapping")
	}
	if de.Code != ErrCodeNetwork {
		t.Errorf("Code = %q", de.Code)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"download error", NewDownloadError(ErrCodeExtraction, "no media", nil), ErrCodeExtraction},
		{"wrapped download error", fmt.Errorf("outer: %w", NewDownloadError(ErrCodeIO, "disk full", nil)), ErrCodeIO},
		{"plain error", errors.New("something"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewHTTPStatusError(t *testing.T) {
	err := NewHTTPStatusError(403, "server returned HTTP 403")
	if err.Code != ErrCodeHTTPStatus {
		t.Errorf("Code = %q", err.Code)
	}
	if err.Status != 403 {
		t.Errorf("Status = %d", err.Status)
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}
