package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
)

// Open starts a write session on the index at path.
//
// The write lock is taken first; contention fails with ERR_206. In
// ModeCreate any existing index at path is removed. In ModeCreateOrAppend
// an unreadable existing index fails with ERR_205. An empty path opens a
// throwaway in-memory index without a lock.
func Open(path string, mode Mode, cfg Config) (Index, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeIndexOpen, "failed to build analyzer", err)
	}

	var lock *FileLock
	if path != "" {
		lock = NewFileLock(path)
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, apperrors.New(apperrors.ErrCodeIndexOpen,
				fmt.Sprintf("cannot lock index '%s'", path), err).
				WithDetail("lock", lock.Path())
		}
		if !acquired {
			return nil, apperrors.New(apperrors.ErrCodeIndexLocked,
				fmt.Sprintf("index '%s' is locked by another process", path), nil).
				WithDetail("lock", lock.Path()).
				WithSuggestion("wait for the other htmlindex run to finish")
		}
	}

	var idx Index
	switch cfg.Backend {
	case BackendBleve:
		idx, err = openBleve(path, mode, cfg, lock)
	case BackendSQLite:
		idx, err = openSQLite(path, mode, cfg, lock)
	default:
		err = apperrors.New(apperrors.ErrCodeIndexOpen,
			fmt.Sprintf("unknown index backend: %s (valid options: bleve, sqlite)", cfg.Backend), nil)
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return idx, nil
}

// indexMarkers are the files that identify a directory as an index.
var indexMarkers = []string{"index_meta.json", sqliteFileName}

// removeIndexDir clears a previous index at path for a rebuild. A missing
// or empty directory is fine; a non-empty directory without an index marker
// is refused.
func removeIndexDir(path string) error {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) || (err == nil && len(entries) == 0) {
		return nil
	}
	if err != nil {
		return apperrors.New(apperrors.ErrCodeIndexOpen,
			fmt.Sprintf("cannot read index directory %s", path), err)
	}

	for _, marker := range indexMarkers {
		if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
			if err := os.RemoveAll(path); err != nil {
				return apperrors.New(apperrors.ErrCodeIndexOpen,
					fmt.Sprintf("cannot remove previous index at %s", path), err)
			}
			slog.Debug("index_cleared", slog.String("path", path))
			return nil
		}
	}

	return apperrors.New(apperrors.ErrCodeIndexOpen,
		fmt.Sprintf("'%s' exists and is not an index", path), nil).
		WithSuggestion("choose an empty or new -index directory")
}
