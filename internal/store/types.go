// Package store persists indexed documents.
//
// Two backends are available: bleve (default), storing a bleve index in the
// index directory, and sqlite, storing an FTS5 table in
// <index>/documents.db. Both hold an exclusive lock file next to the index
// directory for the lifetime of the session.
package store

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/htmlindex/internal/document"
	"github.com/Aman-CERP/htmlindex/internal/tokenize"
)

// Mode selects how a session treats an existing index.
type Mode int

const (
	// ModeCreate discards any existing index and appends every document
	// under a fresh record ID.
	ModeCreate Mode = iota

	// ModeCreateOrAppend opens the existing index (creating it if absent)
	// and replaces documents by path.
	ModeCreateOrAppend
)

// ModeFor maps the -update flag to a Mode.
func ModeFor(update bool) Mode {
	if update {
		return ModeCreateOrAppend
	}
	return ModeCreate
}

// String returns the mode name used in logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeCreateOrAppend:
		return "update"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Backend names a storage implementation.
type Backend string

const (
	// BackendBleve stores a bleve index (default).
	BackendBleve Backend = "bleve"

	// BackendSQLite stores an SQLite FTS5 table.
	BackendSQLite Backend = "sqlite"
)

// DefaultBatchSize is the number of operations buffered before a commit.
const DefaultBatchSize = 100

// Config configures Open.
type Config struct {
	// Backend is bleve or sqlite. Empty means bleve.
	Backend Backend

	// BatchSize is the number of buffered operations per commit.
	BatchSize int

	// Analyzer analyzes title and contents in the bleve backend.
	// Nil means the standard analyzer.
	Analyzer *tokenize.Analyzer
}

func (c Config) withDefaults() (Config, error) {
	if c.Backend == "" {
		c.Backend = BackendBleve
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Analyzer == nil {
		a, err := tokenize.New(tokenize.Options{Kind: tokenize.KindStandard})
		if err != nil {
			return c, err
		}
		c.Analyzer = a
	}
	return c, nil
}

// Record is a stored document as read back from the index.
type Record struct {
	ID       string
	Path     string
	Modified int64
	Title    string
	Contents string
}

// Index is one write session over the persistent index.
//
// Writes are buffered and become visible on Flush or Close. The read
// methods flush pending writes first.
type Index interface {
	// Append adds doc under a fresh record ID without any lookup.
	Append(ctx context.Context, doc document.Document) error

	// Replace removes every record whose path equals key and inserts doc,
	// atomically with respect to the next commit.
	Replace(ctx context.Context, key string, doc document.Document) error

	// Delete removes every record whose path equals key.
	Delete(ctx context.Context, key string) error

	// Flush commits buffered writes.
	Flush(ctx context.Context) error

	// Close flushes, closes the index and releases the write lock.
	Close() error

	// DocCount returns the number of stored records.
	DocCount(ctx context.Context) (uint64, error)

	// CountByPath returns the number of records stored under path.
	CountByPath(ctx context.Context, path string) (int, error)

	// Lookup returns the records stored under path.
	Lookup(ctx context.Context, path string) ([]Record, error)

	// Mode returns the session mode.
	Mode() Mode
}
