package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"eventfeed/internal/seed"
	"eventfeed/internal/storage"
)

func main() {
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/events.db"), "path to sqlite database")
	tz := flag.String("tz", envOrDefault("TIMEZONE", "Asia/Baku"), "timezone relative fixture dates resolve in")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: seed [-db path] <fixture.yaml>")
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Error("load timezone", "tz", *tz, "error", err)
		os.Exit(1)
	}

	fixture, err := seed.LoadFile(flag.Arg(0))
	if err != nil {
		log.Error("load fixture", "path", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(*dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(*dbPath)
	if err != nil {
		log.Error("open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	res, err := seed.Apply(context.Background(), store, fixture, time.Now().In(loc))
	if err != nil {
		log.Error("apply fixture", "error", err)
		os.Exit(1)
	}

	log.Info("fixture applied", "events", res.Events, "follows", res.Follows, "sources", res.Sources)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
