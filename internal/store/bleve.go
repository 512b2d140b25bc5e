package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/Aman-CERP/htmlindex/internal/document"
	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
)

// Field names of a stored document.
const (
	FieldPath     = "path"
	FieldModified = "modified"
	FieldTitle    = "title"
	FieldContents = "contents"
)

// BleveIndex is the bleve-backed Index.
type BleveIndex struct {
	mu        sync.Mutex
	index     bleve.Index
	path      string
	mode      Mode
	batchSize int
	batch     *bleve.Batch
	pending   map[string][]string // path -> record IDs appended in the open batch
	lock      *FileLock
	closed    bool
}

// bleveDocument is the document structure for bleve indexing.
type bleveDocument struct {
	Path     string `json:"path"`
	Modified int64  `json:"modified"`
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

// validateIndexIntegrity checks an existing bleve index directory before
// opening it. A missing or empty directory is not an error.
func validateIndexIntegrity(path string) error {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) || (err == nil && len(entries) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read index directory: %w", err)
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

func openBleve(path string, mode Mode, cfg Config, lock *FileLock) (*BleveIndex, error) {
	indexMapping, err := createIndexMapping(cfg)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeIndexOpen, "failed to create index mapping", err)
	}

	var idx bleve.Index
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(indexMapping)

	case mode == ModeCreate:
		if err := removeIndexDir(path); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeIndexOpen,
				fmt.Sprintf("failed to create directory %s", filepath.Dir(path)), err)
		}
		idx, err = bleve.New(path, indexMapping)

	default:
		if validErr := validateIndexIntegrity(path); validErr != nil {
			return nil, apperrors.New(apperrors.ErrCodeCorruptIndex,
				fmt.Sprintf("index at %s is corrupted", path), validErr).
				WithSuggestion("rebuild it by running without -update")
		}
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) || errors.Is(err, bleve.ErrorIndexMetaMissing) {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, apperrors.New(apperrors.ErrCodeIndexOpen,
					fmt.Sprintf("failed to create directory %s", filepath.Dir(path)), err)
			}
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil {
			return nil, apperrors.New(apperrors.ErrCodeCorruptIndex,
				fmt.Sprintf("cannot open index at %s", path), err).
				WithSuggestion("rebuild it by running without -update")
		}
	}
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeIndexOpen,
			fmt.Sprintf("failed to create/open index at %s", path), err)
	}

	slog.Debug("index_opened",
		slog.String("backend", string(BackendBleve)),
		slog.String("path", path),
		slog.String("mode", mode.String()))

	return &BleveIndex{
		index:     idx,
		path:      path,
		mode:      mode,
		batchSize: cfg.BatchSize,
		batch:     idx.NewBatch(),
		pending:   make(map[string][]string),
		lock:      lock,
	}, nil
}

// createIndexMapping maps path as a keyword, modified as a number and
// title/contents through the configured analyzer.
func createIndexMapping(cfg Config) (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	if err := cfg.Analyzer.Register(indexMapping); err != nil {
		return nil, fmt.Errorf("failed to add analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = cfg.Analyzer.Name()

	pathField := bleve.NewKeywordFieldMapping()
	pathField.Analyzer = keyword.Name

	modifiedField := bleve.NewNumericFieldMapping()

	textField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = cfg.Analyzer.Name()
		f.Store = true
		return f
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(FieldPath, pathField)
	docMapping.AddFieldMappingsAt(FieldModified, modifiedField)
	docMapping.AddFieldMappingsAt(FieldTitle, textField())
	docMapping.AddFieldMappingsAt(FieldContents, textField())
	indexMapping.DefaultMapping = docMapping

	return indexMapping, nil
}

// Mode implements Index.
func (b *BleveIndex) Mode() Mode { return b.mode }

// Append implements Index.
func (b *BleveIndex) Append(ctx context.Context, doc document.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	id := uuid.NewString()
	if err := b.batch.Index(id, toBleveDocument(doc)); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.Path, err)
	}
	b.pending[doc.Path] = append(b.pending[doc.Path], id)

	return b.maybeFlushLocked(ctx)
}

// Replace implements Index. The new record's ID is the path itself.
func (b *BleveIndex) Replace(ctx context.Context, key string, doc document.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	if err := b.deleteLocked(ctx, key); err != nil {
		return err
	}
	if err := b.batch.Index(key, toBleveDocument(doc)); err != nil {
		return fmt.Errorf("failed to index document %s: %w", key, err)
	}
	b.pending[key] = append(b.pending[key], key)

	return b.maybeFlushLocked(ctx)
}

// Delete implements Index.
func (b *BleveIndex) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	if err := b.deleteLocked(ctx, key); err != nil {
		return err
	}
	return b.maybeFlushLocked(ctx)
}

// deleteLocked queues deletion of every committed and pending record
// stored under key.
func (b *BleveIndex) deleteLocked(ctx context.Context, key string) error {
	ids, err := b.idsForPathLocked(ctx, key)
	if err != nil {
		return err
	}
	for _, id := range ids {
		b.batch.Delete(id)
	}
	for _, id := range b.pending[key] {
		b.batch.Delete(id)
	}
	delete(b.pending, key)
	return nil
}

// idsForPathLocked returns the IDs of committed records whose path is key.
func (b *BleveIndex) idsForPathLocked(ctx context.Context, key string) ([]string, error) {
	hits, err := b.searchPathLocked(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

type pathHit struct {
	ID     string
	Fields map[string]interface{}
}

func (b *BleveIndex) searchPathLocked(ctx context.Context, key string, fields []string) ([]pathHit, error) {
	query := bleve.NewTermQuery(key)
	query.SetField(FieldPath)

	req := bleve.NewSearchRequest(query)
	req.Size = 64
	req.Fields = fields
	req.SortBy([]string{"_id"})

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("path lookup failed for %s: %w", key, err)
	}
	if int(result.Total) > len(result.Hits) {
		req.Size = int(result.Total)
		result, err = b.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("path lookup failed for %s: %w", key, err)
		}
	}

	hits := make([]pathHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, pathHit{ID: hit.ID, Fields: hit.Fields})
	}
	return hits, nil
}

func (b *BleveIndex) maybeFlushLocked(ctx context.Context) error {
	if b.batch.Size() < b.batchSize {
		return nil
	}
	return b.flushLocked(ctx)
}

func (b *BleveIndex) flushLocked(ctx context.Context) error {
	if b.batch.Size() == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.index.Batch(b.batch)
	b.batch.Reset()
	clear(b.pending)
	if err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Flush implements Index.
func (b *BleveIndex) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}
	return b.flushLocked(ctx)
}

// DocCount implements Index.
func (b *BleveIndex) DocCount(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	if err := b.flushLocked(ctx); err != nil {
		return 0, err
	}
	return b.index.DocCount()
}

// CountByPath implements Index.
func (b *BleveIndex) CountByPath(ctx context.Context, path string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	if err := b.flushLocked(ctx); err != nil {
		return 0, err
	}
	ids, err := b.idsForPathLocked(ctx, path)
	return len(ids), err
}

// Lookup implements Index.
func (b *BleveIndex) Lookup(ctx context.Context, path string) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if err := b.flushLocked(ctx); err != nil {
		return nil, err
	}

	hits, err := b.searchPathLocked(ctx, path, []string{"*"})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(hits))
	for _, hit := range hits {
		r := Record{ID: hit.ID}
		r.Path, _ = hit.Fields[FieldPath].(string)
		r.Title, _ = hit.Fields[FieldTitle].(string)
		r.Contents, _ = hit.Fields[FieldContents].(string)
		if m, ok := hit.Fields[FieldModified].(float64); ok {
			r.Modified = int64(m)
		}
		records = append(records, r)
	}
	return records, nil
}

// Close implements Index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	flushErr := b.flushLocked(context.Background())
	closeErr := b.index.Close()
	unlockErr := b.lock.Unlock()
	if closeErr != nil {
		closeErr = fmt.Errorf("failed to close index: %w", closeErr)
	}
	return errors.Join(flushErr, closeErr, unlockErr)
}

func toBleveDocument(doc document.Document) bleveDocument {
	return bleveDocument{
		Path:     doc.Path,
		Modified: doc.Modified,
		Title:    doc.Title,
		Contents: doc.Contents,
	}
}

var _ Index = (*BleveIndex)(nil)
