// Package importer polls organiser event feeds and upserts their events.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventfeed/internal/model"
)

// Store is the part of the storage layer the importer needs.
type Store interface {
	ListDueSources(ctx context.Context) ([]model.Source, error)
	UpdateSource(ctx context.Context, src *model.Source) error
	UpsertEvent(ctx context.Context, e *model.EventRecord) error
}

// Recorder receives import metrics.
type Recorder interface {
	RecordImported(n int)
	RecordImportFailure()
}

// Importer periodically polls due sources.
type Importer struct {
	store   Store
	client  HTTPClient
	mapper  *Mapper
	metrics Recorder
	log     *slog.Logger
	tick    time.Duration
}

// New creates an Importer that fetches through client.
func New(store Store, client HTTPClient, log *slog.Logger) *Importer {
	return &Importer{
		store:  store,
		client: client,
		mapper: NewMapper(),
		log:    log,
		tick:   time.Minute,
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (im *Importer) SetTickInterval(d time.Duration) {
	im.tick = d
}

// SetMetrics attaches a metrics recorder.
func (im *Importer) SetMetrics(r Recorder) {
	im.metrics = r
}

// Run starts the import loop, blocking until ctx is cancelled.
func (im *Importer) Run(ctx context.Context) {
	im.ImportDue(ctx)

	ticker := time.NewTicker(im.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			im.ImportDue(ctx)
		}
	}
}

// ImportDue polls every due source once and returns the number of upserted events.
func (im *Importer) ImportDue(ctx context.Context) int {
	sources, err := im.store.ListDueSources(ctx)
	if err != nil {
		im.log.Error("list due sources", "error", err)
		return 0
	}

	total := 0
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		n, err := im.ImportSource(ctx, src)
		if err != nil {
			im.log.Error("import source", "source_id", src.ID, "url", src.URL, "error", err)
			if im.metrics != nil {
				im.metrics.RecordImportFailure()
			}
		}
		total += n
		im.updateLastCheck(ctx, &src)
	}
	return total
}

// ImportSource fetches one source and upserts its items as events.
// Items that fail to store are logged and skipped.
func (im *Importer) ImportSource(ctx context.Context, src model.Source) (int, error) {
	im.log.Debug("checking source", "source_id", src.ID, "name", src.Name)

	if err := ValidateURL(src.URL); err != nil {
		return 0, fmt.Errorf("validate url: %w", err)
	}
	feed, err := fetchFeed(ctx, im.client, src.URL)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, item := range feed.Items {
		e, ok := im.mapper.ToEvent(src, item)
		if !ok {
			continue
		}
		if err := im.store.UpsertEvent(ctx, &e); err != nil {
			im.log.Error("upsert event", "source_id", src.ID, "event_id", e.ID, "error", err)
			continue
		}
		imported++
	}

	if imported > 0 {
		im.log.Info("imported events", "source_id", src.ID, "name", src.Name, "count", imported)
		if im.metrics != nil {
			im.metrics.RecordImported(imported)
		}
	}
	return imported, nil
}

func (im *Importer) updateLastCheck(ctx context.Context, src *model.Source) {
	now := time.Now().UTC()
	src.LastCheckAt = &now
	if err := im.store.UpdateSource(ctx, src); err != nil {
		im.log.Error("update last check", "source_id", src.ID, "error", err)
	}
}
