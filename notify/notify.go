package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/super-dl/super-dl/models"
)

// Event is the payload posted to webhook endpoints.
type Event struct {
	Type      string      `json:"type"` // e.g. "download.completed"
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Notifier delivers webhook events for completed downloads.
// A nil Notifier is safe to use and delivers nothing.
type Notifier struct {
	secret string
	client *http.Client
}

// New creates a Notifier. When secret is non-empty, request bodies are
// signed with HMAC-SHA256 in the X-Superdl-Signature header.
func New(secret string) *Notifier {
	return &Notifier{
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// DownloadComplete posts a download.completed event to url asynchronously,
// retrying on failure. Retry intervals: 1s, 5s, 30s.
func (n *Notifier) DownloadComplete(url string, outcome *models.DownloadOutcome) {
	if n == nil || url == "" {
		return
	}
	event := &Event{
		Type:      "download.completed",
		Timestamp: time.Now().Unix(),
		Data:      outcome,
	}
	go func() {
		delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
		for attempt, delay := range delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.deliver(ctx, url, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"url", url,
					"event", event.Type,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", url,
				"event", event.Type,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"url", url,
			"event", event.Type,
		)
	}()
}

func (n *Notifier) deliver(ctx context.Context, url string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Superdl-Webhook/1.0")

	if n.secret != "" {
		mac := hmac.New(sha256.New, []byte(n.secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Superdl-Signature", "sha256="+sig)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
