// Package index runs indexing sessions: it walks a docs tree, extracts and
// counts every HTML file, writes side artifacts and commits the documents.
package index

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/htmlindex/internal/document"
	"github.com/Aman-CERP/htmlindex/internal/store"
)

// Committer applies the session mode to every document: create appends,
// update replaces by path.
type Committer struct {
	idx  store.Index
	mode store.Mode
}

// NewCommitter wraps an open index. The mode is the index's session mode.
func NewCommitter(idx store.Index) (*Committer, error) {
	if idx == nil {
		return nil, fmt.Errorf("index is required")
	}
	return &Committer{idx: idx, mode: idx.Mode()}, nil
}

// Mode returns the session mode.
func (c *Committer) Mode() store.Mode { return c.mode }

// Index returns the underlying session.
func (c *Committer) Index() store.Index { return c.idx }

// Commit adds doc according to the session mode.
func (c *Committer) Commit(ctx context.Context, doc document.Document) error {
	if c.mode == store.ModeCreate {
		return c.idx.Append(ctx, doc)
	}
	return c.idx.Replace(ctx, doc.Path, doc)
}

// Remove deletes every record stored under path.
func (c *Committer) Remove(ctx context.Context, path string) error {
	return c.idx.Delete(ctx, path)
}

// Close flushes pending documents and releases the index.
func (c *Committer) Close() error {
	return c.idx.Close()
}
