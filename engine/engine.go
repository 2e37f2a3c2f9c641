package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrRenderUnavailable is returned when a request demands JavaScript
// execution but no engine in the configured set can render. Callers treat
// it as a configuration problem, not a transient failure.
var ErrRenderUnavailable = errors.New("rendering not available")

// Engine is the interface that all page-fetch engines implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "browser").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Referer string
	Headers map[string]string

	// Render marks the request as needing JavaScript execution; the HTTP
	// engine refuses it so the dispatcher goes straight to the browser.
	Render bool
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}

// StatusError reports a non-success HTTP status. The dispatcher may still
// escalate past it (a 403 from the HTTP engine often succeeds in a browser);
// callers use it to distinguish HTTP failures from connectivity failures.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d for %s", e.Status, e.URL)
}
