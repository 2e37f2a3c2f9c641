package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/super-dl/super-dl/config"
	"github.com/ysmood/gson"
)

// RenderEngine fetches pages through a headless Chromium instance. Video
// hosts frequently inject the player (and with it the media URL) from
// JavaScript, so the static HTTP engine comes back empty-handed; this tier
// runs the page and returns the rendered DOM.
//
// The browser is launched lazily on the first fetch and shared by a page
// pool; Close must be called on shutdown to avoid zombie Chrome processes.
type RenderEngine struct {
	cfg       config.BrowserConfig
	launchErr error
	once      sync.Once
	browser   *rod.Browser
	pagePool  rod.Pool[rod.Page]
}

// NewRenderEngine creates a RenderEngine. The browser is not launched until
// the first Fetch, so constructing the engine is free when no page ever
// needs rendering.
func NewRenderEngine(cfg config.BrowserConfig) *RenderEngine {
	return &RenderEngine{cfg: cfg}
}

func (e *RenderEngine) Name() string { return "browser" }

// launch starts Chromium and builds the page pool. Callers go through
// ensureBrowser, which serialises concurrent first fetches.
func (e *RenderEngine) launch() error {
	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox)
	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("browser engine: launch: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("browser engine: connect: %w", err)
	}

	e.browser = browser
	e.pagePool = rod.NewPagePool(e.cfg.MaxPages)
	slog.Info("browser launched", "controlURL", controlURL, "maxPages", e.cfg.MaxPages)
	return nil
}

// ensureBrowser launches the browser exactly once, even when concurrent
// requests hit the engine on their first render. A failed launch sticks;
// later fetches see the same error instead of spawning more browsers.
func (e *RenderEngine) ensureBrowser() error {
	e.once.Do(func() {
		e.launchErr = e.launch()
	})
	return e.launchErr
}

func (e *RenderEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if err := e.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := e.pagePool.Get(func() (*rod.Page, error) {
		return e.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, fmt.Errorf("browser engine: acquire page: %w", err)
	}

	// Park the tab on about:blank before returning it so the pooled page
	// holds no DOM from the previous navigation. Uses the original page
	// reference, not the context-bound one, so cleanup still works after
	// the request deadline.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup navigation failed", "error", navErr)
		}
		e.pagePool.Put(page)
	}()

	// Stealth and headers must be installed before Navigate; they only
	// apply to navigations that happen afterwards.
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without it", "error", evalErr)
	}

	headers := make(map[string]string, len(req.Headers)+2)
	headers["User-Agent"] = chromeUA
	if req.Referer != "" {
		headers["Referer"] = req.Referer
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)

	p := page.Context(ctx)

	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("browser engine: navigate: %w", err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("DOM did not stabilise, proceeding with current state", "error", err)
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser engine: extract html: %w", err)
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}
	if _, err := url.Parse(finalURL); err != nil {
		finalURL = req.URL
	}

	return &FetchResult{
		HTML:       rawHTML,
		Title:      title,
		StatusCode: 200,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// Close kills the browser process. Safe to call when the browser never
// launched.
func (e *RenderEngine) Close() {
	if e.browser == nil {
		return
	}
	e.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	e.browser.MustClose()
	slog.Info("browser closed")
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
