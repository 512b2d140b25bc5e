package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/htmlindex/internal/document"
	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
)

// sqliteFileName is the database file inside the index directory.
const sqliteFileName = "documents.db"

const sqliteSchema = `CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(
	id UNINDEXED,
	path UNINDEXED,
	modified UNINDEXED,
	title,
	contents,
	tokenize = 'porter unicode61'
)`

// SQLiteIndex is the SQLite FTS5-backed Index. Buffered writes share one
// transaction that is committed every BatchSize operations.
type SQLiteIndex struct {
	mu        sync.Mutex
	db        *sql.DB
	tx        *sql.Tx
	ops       int
	path      string
	mode      Mode
	batchSize int
	lock      *FileLock
	closed    bool
}

// validateSQLiteIntegrity checks an existing database before opening it.
func validateSQLiteIntegrity(dbPath string) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='documents'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("FTS5 table 'documents' missing")
	}

	return nil
}

func openSQLite(path string, mode Mode, cfg Config, lock *FileLock) (*SQLiteIndex, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if mode == ModeCreate {
			if err := removeIndexDir(path); err != nil {
				return nil, err
			}
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeIndexOpen,
				fmt.Sprintf("failed to create directory %s", path), err)
		}

		dbPath := filepath.Join(path, sqliteFileName)
		if mode == ModeCreateOrAppend {
			if validErr := validateSQLiteIntegrity(dbPath); validErr != nil {
				return nil, apperrors.New(apperrors.ErrCodeCorruptIndex,
					fmt.Sprintf("index at %s is corrupted", path), validErr).
					WithSuggestion("rebuild it by running without -update")
			}
		}
		dsn = dbPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeIndexOpen, "failed to open database", err)
	}

	// Single connection: the write transaction and reads must share it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if path == "" {
		pragmas = pragmas[1:]
	}
	for _, pragma := range append(pragmas, sqliteSchema) {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, apperrors.New(apperrors.ErrCodeIndexOpen, "failed to initialize database", err)
		}
	}

	slog.Debug("index_opened",
		slog.String("backend", string(BackendSQLite)),
		slog.String("path", path),
		slog.String("mode", mode.String()))

	return &SQLiteIndex{
		db:        db,
		path:      path,
		mode:      mode,
		batchSize: cfg.BatchSize,
		lock:      lock,
	}, nil
}

// Mode implements Index.
func (s *SQLiteIndex) Mode() Mode { return s.mode }

// Append implements Index.
func (s *SQLiteIndex) Append(ctx context.Context, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(ctx, func(tx *sql.Tx) error {
		return insertDocument(ctx, tx, uuid.NewString(), doc)
	})
}

// Replace implements Index. The new record's ID is the path itself.
func (s *SQLiteIndex) Replace(ctx context.Context, key string, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return insertDocument(ctx, tx, key, doc)
	})
}

// Delete implements Index.
func (s *SQLiteIndex) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return nil
	})
}

// writeLocked runs fn inside the open batch transaction, using a savepoint
// so a failed operation leaves the rest of the batch intact.
func (s *SQLiteIndex) writeLocked(ctx context.Context, fn func(*sql.Tx) error) error {
	if s.closed {
		return fmt.Errorf("index is closed")
	}
	if s.tx == nil {
		// Not bound to ctx: the transaction outlives the call that opens it.
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		s.tx = tx
	}

	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT op"); err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	if err := fn(s.tx); err != nil {
		_, _ = s.tx.ExecContext(ctx, "ROLLBACK TO op")
		_, _ = s.tx.ExecContext(ctx, "RELEASE op")
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "RELEASE op"); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}

	s.ops++
	if s.ops >= s.batchSize {
		return s.commitLocked()
	}
	return nil
}

func (s *SQLiteIndex) commitLocked() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	s.ops = 0
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, id string, doc document.Document) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, path, modified, title, contents) VALUES (?, ?, ?, ?, ?)`,
		id, doc.Path, doc.Modified, doc.Title, doc.Contents)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", doc.Path, err)
	}
	return nil
}

// Flush implements Index.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}
	return s.commitLocked()
}

// DocCount implements Index.
func (s *SQLiteIndex) DocCount(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readyLocked(); err != nil {
		return 0, err
	}
	var count uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// CountByPath implements Index.
func (s *SQLiteIndex) CountByPath(ctx context.Context, path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readyLocked(); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE path = ?`, path).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", path, err)
	}
	return count, nil
}

// Lookup implements Index.
func (s *SQLiteIndex) Lookup(ctx context.Context, path string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readyLocked(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, modified, title, contents FROM documents WHERE path = ? ORDER BY id`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", path, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Path, &r.Modified, &r.Title, &r.Contents); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// readyLocked commits pending writes so reads on the shared connection
// see them.
func (s *SQLiteIndex) readyLocked() error {
	if s.closed {
		return fmt.Errorf("index is closed")
	}
	return s.commitLocked()
}

// Close implements Index.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	commitErr := s.commitLocked()
	closeErr := s.db.Close()
	unlockErr := s.lock.Unlock()
	if closeErr != nil {
		closeErr = fmt.Errorf("failed to close database: %w", closeErr)
	}
	return errors.Join(commitErr, closeErr, unlockErr)
}

var _ Index = (*SQLiteIndex)(nil)
