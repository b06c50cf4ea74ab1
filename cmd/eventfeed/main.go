package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"eventfeed/internal/api"
	"eventfeed/internal/bot"
	"eventfeed/internal/config"
	"eventfeed/internal/fetcher"
	"eventfeed/internal/importer"
	"eventfeed/internal/metrics"
	"eventfeed/internal/session"
	"eventfeed/internal/storage"
)

const (
	sweepInterval   = time.Minute
	importTimeout   = 30 * time.Second
	httpBurst       = 20
	clientTTL       = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	loc := cfg.Location()
	f := fetcher.New(store, store, fetcher.WithMetrics(collector), fetcher.WithLogger(log))
	sessions := session.NewRegistry(session.StateFactory(f, session.Settings{
		HomePageSize: cfg.HomePageSize,
		FeedPageSize: cfg.FeedPageSize,
		SettleDelay:  cfg.SettleDelay,
		Now:          func() time.Time { return time.Now().In(loc) },
		Metrics:      collector,
		Log:          log,
	}), cfg.SessionTTL, log)

	imp := importer.New(store, importer.NewSafeClient(importTimeout), log)
	imp.SetTickInterval(cfg.ImportInterval)
	imp.SetMetrics(collector)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	goRun := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	goRun(func(ctx context.Context) { sessions.Run(ctx, sweepInterval) })
	goRun(imp.Run)

	if cfg.TelegramBotToken != "" {
		b, err := bot.New(cfg.TelegramBotToken, sessions, store, cfg, log)
		if err != nil {
			log.Error("create bot", "error", err)
			os.Exit(1)
		}
		log.Info("starting bot")
		goRun(b.Run)
	}

	if cfg.HTTPAddr != "" {
		limiter := api.NewRateLimiter(cfg.HTTPRate, httpBurst)
		goRun(func(ctx context.Context) { limiter.Run(ctx, clientTTL) })

		srv := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: api.NewRouter(api.RouterDeps{
				Handler:     api.NewHandler(sessions, log),
				RateLimiter: limiter,
				Metrics:     metrics.Handler(reg),
				Log:         log,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		goRun(func(ctx context.Context) { serveHTTP(ctx, srv, log) })
	}

	log.Info("eventfeed started", "timezone", loc.String())
	<-ctx.Done()
	wg.Wait()
	log.Info("eventfeed stopped")
}

// serveHTTP runs srv until ctx is cancelled, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server, log *slog.Logger) {
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown http server", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
