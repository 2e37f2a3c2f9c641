package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/super-dl/super-dl/api"
	"github.com/super-dl/super-dl/api/handler"
	"github.com/super-dl/super-dl/cache"
	"github.com/super-dl/super-dl/config"
	"github.com/super-dl/super-dl/download"
	"github.com/super-dl/super-dl/engine"
	"github.com/super-dl/super-dl/fetcher"
	"github.com/super-dl/super-dl/models"
	"github.com/super-dl/super-dl/notify"
	"github.com/super-dl/super-dl/pipeline"
	"github.com/super-dl/super-dl/sites"
)

// Exit codes:
//
//	0  success
//	1  usage error
//	2  unknown or undetermined site
//	3  page fetch failure
//	4  extraction failure
//	5  download or other failure
const (
	exitUsage      = 1
	exitSite       = 2
	exitFetch      = 3
	exitExtraction = 4
	exitOther      = 5
)

func main() {
	fetchFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "site",
			Usage: "extractor to use (default: infer from the URL hostname)",
		},
		&cli.BoolFlag{
			Name:  "render",
			Usage: "fetch the page with the headless browser engine",
		},
		&cli.StringFlag{
			Name:  "selector",
			Usage: "CSS selector restricting where media is looked for",
		},
		&cli.StringFlag{
			Name:  "referer",
			Usage: "override the Referer header for page and media requests",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "page fetch timeout in seconds",
			Value: 30,
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "only log errors",
		},
	}
	outputFlag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: derived from the media URL)",
	}

	app := &cli.App{
		Name:      "super-dl",
		Usage:     "download the video embedded in a web page",
		Version:   handler.Version,
		ArgsUsage: "<url>",
		Flags:     append(append([]cli.Flag{}, fetchFlags...), outputFlag),
		Action:    getAction,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "fetch a page, extract its video and save it to disk",
				ArgsUsage: "<url>",
				Flags:     append(append([]cli.Flag{}, fetchFlags...), outputFlag),
				Action:    getAction,
			},
			{
				Name:      "extract",
				Usage:     "print the media URL embedded in a page without downloading",
				ArgsUsage: "<url>",
				Flags: append(append([]cli.Flag{}, fetchFlags...), &cli.BoolFlag{
					Name:  "json",
					Usage: "print the full extraction result as JSON",
				}),
				Action: extractAction,
			},
			{
				Name:   "sites",
				Usage:  "list registered extractors and their host patterns",
				Action: sitesAction,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP API server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "only log errors",
					},
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitUsage)
	}
}

func getAction(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(cfg, c.Bool("render"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitOther)
	}
	defer cleanup()

	req := &models.DownloadRequest{
		URL:        c.Args().First(),
		Site:       c.String("site"),
		OutputPath: c.String("output"),
		Timeout:    c.Int("timeout"),
		Render:     c.Bool("render"),
		Selector:   c.String("selector"),
		Referer:    c.String("referer"),
	}
	req.Defaults()

	outcome, ref, err := p.Run(context.Background(), req)
	if err != nil {
		return exitError(err)
	}

	slog.Info("download complete",
		"url", req.URL,
		"media", ref.URL,
		"output", outcome.OutputPath,
		"bytes", outcome.BytesWritten,
		"duration", outcome.Duration,
	)
	fmt.Println(outcome.OutputPath)
	return nil
}

func extractAction(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(cfg, c.Bool("render"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitOther)
	}
	defer cleanup()

	req := &models.ExtractRequest{
		URL:      c.Args().First(),
		Site:     c.String("site"),
		Timeout:  c.Int("timeout"),
		Render:   c.Bool("render"),
		Selector: c.String("selector"),
	}
	req.Defaults()

	ref, page, err := p.Extract(context.Background(), req)
	if err != nil {
		return exitError(err)
	}

	if c.Bool("json") {
		out := &models.ExtractResponse{
			Success: true,
			Media:   ref,
			Page:    page,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Println(ref.URL)
	return nil
}

func sitesAction(c *cli.Context) error {
	cfg := config.Load()
	if err := bindSites(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitOther)
	}
	for _, name := range sites.Names() {
		fmt.Printf("%-12s", name)
		for _, host := range sites.HostsOf(name) {
			fmt.Printf(" %s", host)
		}
		fmt.Println()
	}
	return nil
}

func serveAction(c *cli.Context) error {
	cfg := config.Load()
	if c.Bool("quiet") {
		cfg.Log.Level = "error"
	}
	initLogger(cfg.Log)
	slog.Info("super-dl starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"render", cfg.Engine.EnableRender,
	)

	p, cleanup, err := buildPipeline(cfg, false)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitOther)
	}
	defer cleanup()

	notifier := notify.New(cfg.Server.WebhookSecret)
	router := api.NewRouter(p, notifier, cfg, time.Now())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Returning (rather than exiting) on listen failure lets the deferred
	// cleanup close the browser and stop the domain-memory sweeper.
	select {
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitOther)
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("super-dl stopped")
	return nil
}

// setup loads config, configures logging and validates the single URL
// argument shared by get and extract.
func setup(c *cli.Context) (*config.Config, error) {
	cfg := config.Load()
	if c.Bool("quiet") {
		cfg.Log.Level = "error"
	}
	initLogger(cfg.Log)

	if c.NArg() != 1 {
		cli.ShowSubcommandHelp(c)
		return nil, cli.Exit("Error: exactly one URL argument is required", exitUsage)
	}
	if err := bindSites(cfg); err != nil {
		return nil, cli.Exit(fmt.Sprintf("Error: %v", err), exitOther)
	}
	return cfg, nil
}

// bindSites applies the configured extractor host bindings.
func bindSites(cfg *config.Config) error {
	for name, hosts := range cfg.Sites.Bindings {
		if err := sites.BindHosts(name, hosts); err != nil {
			return err
		}
	}
	return nil
}

// buildPipeline assembles the fetch engines, downloader and page cache.
// forceRender enables the browser engine even when the config leaves it
// off, so that a --render request has an engine able to serve it.
func buildPipeline(cfg *config.Config, forceRender bool) (*pipeline.Pipeline, func(), error) {
	engines := []engine.Engine{engine.NewHTTPEngine(cfg.Fetch.MaxBodyBytes)}

	var render *engine.RenderEngine
	if cfg.Engine.EnableRender || forceRender {
		render = engine.NewRenderEngine(cfg.Browser)
		engines = append(engines, render)
	}

	memory := engine.NewDomainMemory(cfg.Engine.DomainMemoryTTL)
	dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)

	f := fetcher.New(dispatcher, cfg.Fetch)
	d := download.New(cfg.Download)
	pages := cache.New(cfg.Cache.MaxEntries, cfg.Cache.MaxAge)

	cleanup := func() {
		memory.Stop()
		if render != nil {
			render.Close()
		}
	}
	return pipeline.New(f, d, pages), cleanup, nil
}

// exitError maps an error to the documented exit codes, printing the
// message to stderr via cli.Exit.
func exitError(err error) error {
	msg := fmt.Sprintf("Error: %v", err)
	switch models.CodeOf(err) {
	case models.ErrCodeInvalidInput:
		return cli.Exit(msg, exitUsage)
	case models.ErrCodeUnsupported:
		return cli.Exit(msg, exitSite)
	case models.ErrCodeNetwork, models.ErrCodeHTTPStatus:
		return cli.Exit(msg, exitFetch)
	case models.ErrCodeExtraction:
		return cli.Exit(msg, exitExtraction)
	default:
		return cli.Exit(msg, exitOther)
	}
}

// initLogger configures slog based on the LogConfig. CLI logs go to
// stderr so stdout stays clean for the media URL / output path.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
