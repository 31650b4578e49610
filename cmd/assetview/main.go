package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/assetcache/cache"
	"github.com/wippyai/assetcache/config"
	"github.com/wippyai/assetcache/metrics"
	"github.com/wippyai/assetcache/resource"
	"github.com/wippyai/assetcache/wasmasset"
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs the viewer and returns once every deferred cleanup, including
// the final log sync, has run.
func execute(args []string) error {
	fs := flag.NewFlagSet("assetview", flag.ContinueOnError)
	var (
		configFile  = fs.String("config", "", "Path to YAML config file")
		assetRoot   = fs.String("assets", "", "Asset root (overrides config)")
		loadList    = fs.String("load", "", "Assets to load at startup (comma-separated)")
		callName    = fs.String("call", "", "Export to call on every loaded wasm module (headless)")
		frames      = fs.Int("frames", 4, "Frames to run in headless mode")
		logFile     = fs.String("log-file", "", "Write logs to this file instead of stderr")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
	)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	if *assetRoot != "" {
		cfg.AssetRoot = *assetRoot
	}

	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("-i needs a terminal on stdout")
	}

	logger, err := newLogger(cfg.LogLevel, *logFile, *interactive)
	if err != nil {
		return err
	}
	defer logger.Sync()
	resource.SetLogger(logger.Named("resource"))
	wasmasset.SetLogger(logger.Named("wasm"))

	var paths []string
	for _, p := range strings.Split(*loadList, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}

	opts := []cache.Option{cache.FromConfig(cfg), cache.WithLogger(logger.Named("cache"))}
	var (
		col *metrics.Collector
		srv *http.Server
	)
	if cfg.Metrics.Enabled {
		col = metrics.NewCollector(cfg.Metrics.Namespace)
		opts = append(opts, cache.WithObserver(col))
		srv = serveMetrics(cfg.Metrics.Addr, col, logger)
	}

	ctx := context.Background()
	s := newSession(ctx, cache.New(opts...), col, logger)

	if *interactive {
		err = runInteractive(ctx, s, cfg, paths)
	} else {
		err = run(ctx, s, paths, *callName, *frames)
	}

	if cerr := s.close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		stopMetrics(shutdownCtx, srv, logger)
	}
	if err != nil {
		logger.Error("assetview failed", zap.Error(err))
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds a console logger at level. The TUI owns the terminal, so
// interactive sessions only log when a file is given.
func newLogger(level, file string, interactive bool) (*zap.Logger, error) {
	if interactive && file == "" {
		return zap.NewNop(), nil
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	if file != "" {
		zc.OutputPaths = []string{file}
		zc.ErrorOutputPaths = []string{file}
	}
	return zc.Build()
}

func serveMetrics(addr string, col *metrics.Collector, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", col.Handler())
	mux.Handle("/metrics/process", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("metrics endpoint started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return srv
}

// stopMetrics shuts the metrics server down, logging anything that did not
// finish before ctx expired.
func stopMetrics(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	err := srv.Shutdown(ctx)
	if err != nil {
		logger.Warn("metrics server shutdown", zap.String("addr", srv.Addr), zap.Error(err))
	}
	return err
}

// run loads paths, optionally calls an export on each wasm module, then
// drives the frame loop: handles are held for the first half of the frames
// and dropped before the second half.
func run(ctx context.Context, s *session, paths []string, callName string, frames int) error {
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: assetview -load <path,...> [-call export] [-frames n] [-config file]")
		fmt.Fprintln(os.Stderr, "       assetview -i  (interactive mode)")
		return nil
	}

	for _, p := range paths {
		h, err := s.load(ctx, p)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %s (%s) as %s\n", p, h.kind, h.handle)
	}

	if callName != "" {
		for i, h := range s.held {
			if h.kind != "wasm" {
				continue
			}
			results, err := s.call(ctx, i, callName)
			if err != nil {
				return fmt.Errorf("call %s: %w", callName, err)
			}
			fmt.Printf("%s %s() -> %v\n", h.path, callName, results)
		}
	}

	printTypes(s.engine)

	for f := 1; f <= frames; f++ {
		if f == frames/2+1 {
			fmt.Printf("\nDropping %d handles\n", len(s.held))
			s.dropAll()
		}
		stats, err := s.frame()
		if err != nil {
			return err
		}
		fmt.Printf("frame %d: drained %d, freed %d, live %d\n", f, stats.Drained, stats.Freed, s.engine.TotalCount())
	}

	printTypes(s.engine)
	return nil
}

func printTypes(e *cache.Engine) {
	types := e.Types()
	if len(types) == 0 {
		fmt.Println("\nNo live resources.")
		return
	}
	fmt.Printf("\n%-32s %9s %7s\n", "TYPE", "RESOURCES", "PENDING")
	for _, t := range types {
		fmt.Printf("%-32s %9d %7d\n", t.Tag, t.Resources, t.Pending)
	}
}
