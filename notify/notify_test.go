package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/super-dl/super-dl/models"
)

func TestDownloadComplete_DeliversEvent(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- body
	}))
	defer srv.Close()

	n := New("")
	n.DownloadComplete(srv.URL, &models.DownloadOutcome{
		BytesWritten: 42,
		OutputPath:   "/tmp/clip.mp4",
		MediaURL:     "https://cdn.example.com/clip.mp4",
	})

	select {
	case body := <-received:
		var event Event
		if err := json.Unmarshal(body, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.Type != "download.completed" {
			t.Errorf("Type = %q", event.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook never delivered")
	}
}

func TestDownloadComplete_SignsPayload(t *testing.T) {
	type delivery struct {
		body []byte
		sig  string
	}
	received := make(chan delivery, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- delivery{body: body, sig: r.Header.Get("X-Superdl-Signature")}
	}))
	defer srv.Close()

	n := New("topsecret")
	n.DownloadComplete(srv.URL, &models.DownloadOutcome{BytesWritten: 1})

	select {
	case d := <-received:
		mac := hmac.New(sha256.New, []byte("topsecret"))
		mac.Write(d.body)
		want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
		if d.sig != want {
			t.Errorf("signature = %q, want %q", d.sig, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook never delivered")
	}
}

func TestDownloadComplete_NilSafe(t *testing.T) {
	var n *Notifier
	// Must not panic.
	n.DownloadComplete("https://example.com/hook", &models.DownloadOutcome{})
}
