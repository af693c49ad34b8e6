// Command quickwhatsd runs the phone-number detection daemon: it ingests
// detection events from page producers, extracts numbers from images via a
// vision model, keeps the durable recent-numbers list and serves the panel
// API and event stream.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/quickwhats/quickwhats/browser"
	"github.com/quickwhats/quickwhats/config"
	"github.com/quickwhats/quickwhats/detect"
	"github.com/quickwhats/quickwhats/extract"
	"github.com/quickwhats/quickwhats/httpapi"
	"github.com/quickwhats/quickwhats/imagefetch"
	"github.com/quickwhats/quickwhats/notify"
	"github.com/quickwhats/quickwhats/phonescan"
	"github.com/quickwhats/quickwhats/recent"
	"github.com/quickwhats/quickwhats/settings"
	"github.com/quickwhats/quickwhats/storedb"
	"github.com/quickwhats/quickwhats/vision"
	"github.com/quickwhats/quickwhats/walink"
)

func main() {
	configPath := flag.String("config", "quickwhats.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.Log.Level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Durable state.
	db, err := storedb.Open(cfg.DBPath,
		storedb.WithMkdirAll(),
		storedb.WithSchema(recent.Schema),
		storedb.WithSchema(settings.Schema),
	)
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recentStore := recent.NewStore(db)
	settingsStore := settings.NewStore(db)
	settingsStore.DefaultModel = vision.DefaultModel
	settingsStore.KnownModels = vision.ModelIDs()

	// Browser surfaces (optional).
	var mgr *browser.Manager
	if cfg.Browser.Enabled {
		mgr = browser.NewManager(browser.Config{
			RemoteURL: cfg.Browser.Remote,
			Logger:    logger,
		})
		if err := mgr.Start(ctx); err != nil {
			slog.Error("browser start", "error", err)
			os.Exit(1)
		}
		defer mgr.Close()
	}

	// Notification fan-out.
	events := notify.NewSSE()
	sinkList := []notify.Sink{notify.NewLog(logger), events}
	if mgr != nil {
		sinkList = append(sinkList, browser.NewToastSink(mgr, logger))
	}
	sinks := notify.NewRouter(logger, sinkList...)
	defer sinks.Close()

	// Chat launcher: a browser tab when attached, a log line otherwise.
	var launcher walink.Launcher = walink.LogLauncher{Logger: logger}
	if mgr != nil {
		launcher = mgr
	}

	// Detection coordinator.
	coordinator := detect.New(recentStore, sinks, launcher, detect.WithLogger(logger))
	go coordinator.Run(ctx)

	// Image extraction pipeline.
	classifier := imagefetch.NewClassifier(cfg.Detect.RestrictedHosts...)
	fetcher := imagefetch.NewFetcher(imagefetch.FetchConfig{})
	resolver := imagefetch.NewResolver(classifier, fetcher, logger)

	var visionOpts []vision.Option
	if cfg.Vision.Endpoint != "" {
		visionOpts = append(visionOpts, vision.WithEndpoint(cfg.Vision.Endpoint))
	}
	extractor := vision.New(settingsStore, visionOpts...)

	pipeline := extract.New(resolver, extractor, coordinator, sinks, extract.WithLogger(logger))

	// Optional MCP over stdio.
	if cfg.MCP.Stdio {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "quickwhats",
			Version: "1.0.0",
		}, nil)
		coordinator.RegisterMCP(mcpSrv)
		pipeline.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp stdio", "error", err)
			}
		}()
	}

	// HTTP API.
	api := httpapi.NewServer(httpapi.Config{
		Coordinator: coordinator,
		Pipeline:    pipeline,
		Settings:    settingsStore,
		Events:      events,
		Scan:        phonescan.ScanHTML,
		Delegate:    delegateFunc(mgr),
		AuthHash:    cfg.Auth.PasswordHash,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// delegateFunc adapts the browser manager to the API's delegate lookup. The
// nil check happens here so a missing tab yields a true nil interface.
func delegateFunc(mgr *browser.Manager) httpapi.DelegateFunc {
	if mgr == nil {
		return nil
	}
	return func(pageURL string) imagefetch.Delegate {
		if d := mgr.Delegate(pageURL); d != nil {
			return d
		}
		return nil
	}
}
