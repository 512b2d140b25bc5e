package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the path to mtime cache when none is configured.
const DefaultCacheSize = 4096

// Indexer applies single-path changes to an index.
type Indexer interface {
	IndexFile(ctx context.Context, path string) error
	RemoveFile(ctx context.Context, path string) error
}

// Flusher is implemented by indexers that buffer writes. Syncer flushes
// after every batch so changes become durable while watching.
type Flusher interface {
	Flush(ctx context.Context) error
}

// SyncStats counts what one batch did.
type SyncStats struct {
	Indexed   int
	Removed   int
	Unchanged int
	Failed    int
}

// Syncer applies debounced batches to an Indexer. It remembers the
// modification time each path was last indexed at and skips events that do
// not change it.
type Syncer struct {
	indexer Indexer
	seen    *lru.Cache[string, int64]
}

// NewSyncer creates a syncer whose mtime cache holds up to cacheSize paths.
func NewSyncer(indexer Indexer, cacheSize int) (*Syncer, error) {
	if indexer == nil {
		return nil, errors.New("indexer is required")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	seen, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create path cache: %w", err)
	}
	return &Syncer{indexer: indexer, seen: seen}, nil
}

// Remember records that path is indexed at modified (Unix milliseconds).
func (s *Syncer) Remember(path string, modified int64) {
	s.seen.Add(path, modified)
}

// Apply processes one batch. Per-path failures are logged and counted; a
// cancelled context stops the batch.
func (s *Syncer) Apply(ctx context.Context, events []FileEvent) (SyncStats, error) {
	var stats SyncStats
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if event.IsDir {
			continue
		}

		if event.Operation.Removes() {
			s.remove(ctx, event.Path, &stats)
			continue
		}

		info, err := os.Stat(event.Path)
		if errors.Is(err, fs.ErrNotExist) {
			s.remove(ctx, event.Path, &stats)
			continue
		}
		if err == nil && info.IsDir() {
			continue
		}
		if err == nil {
			modified := info.ModTime().UnixMilli()
			if last, ok := s.seen.Get(event.Path); ok && last == modified {
				stats.Unchanged++
				continue
			}
		}

		if err := s.indexer.IndexFile(ctx, event.Path); err != nil {
			stats.Failed++
			s.seen.Remove(event.Path)
			slog.Warn("watch_index_failed",
				slog.String("path", event.Path),
				slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		if info != nil {
			s.seen.Add(event.Path, info.ModTime().UnixMilli())
		}
	}

	if f, ok := s.indexer.(Flusher); ok && stats.Indexed+stats.Removed > 0 {
		if err := f.Flush(ctx); err != nil {
			return stats, fmt.Errorf("flush index: %w", err)
		}
	}
	return stats, nil
}

func (s *Syncer) remove(ctx context.Context, path string, stats *SyncStats) {
	s.seen.Remove(path)
	if err := s.indexer.RemoveFile(ctx, path); err != nil {
		stats.Failed++
		slog.Warn("watch_remove_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	stats.Removed++
}

// Run applies batches from w until ctx is cancelled or w stops.
func (s *Syncer) Run(ctx context.Context, w *HybridWatcher) error {
	events := w.Events()
	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			stats, err := s.Apply(ctx, batch)
			if err != nil {
				return err
			}
			slog.Info("watch_batch_applied",
				slog.Int("events", len(batch)),
				slog.Int("indexed", stats.Indexed),
				slog.Int("removed", stats.Removed),
				slog.Int("unchanged", stats.Unchanged),
				slog.Int("failed", stats.Failed))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}
