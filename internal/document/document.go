// Package document assembles index records and writes their side artifacts.
package document

import (
	"io/fs"

	"github.com/Aman-CERP/htmlindex/internal/extract"
	"github.com/Aman-CERP/htmlindex/internal/tokenize"
)

// SourceFile is one file discovered under the docs root.
// Path is its identity for traversal, artifact naming and replacement.
type SourceFile struct {
	Path string

	// Modified is the last modification time in Unix milliseconds.
	Modified int64
}

// NewSourceFile builds a SourceFile from a path and its file info.
func NewSourceFile(path string, info fs.FileInfo) SourceFile {
	return SourceFile{Path: path, Modified: info.ModTime().UnixMilli()}
}

// Document is the record committed to the index.
type Document struct {
	Path     string
	Modified int64
	Title    string
	Contents string

	// Tokens feeds the token dump. It is not stored in the index.
	Tokens tokenize.Counts
}

// Build assembles the record for an HTML file.
func Build(file SourceFile, content extract.Content, counts tokenize.Counts) Document {
	return Document{
		Path:     file.Path,
		Modified: file.Modified,
		Title:    content.Title,
		Contents: content.Body,
		Tokens:   counts,
	}
}

// Minimal is the record for a file that is not HTML: path and modified only.
func Minimal(file SourceFile) Document {
	return Document{Path: file.Path, Modified: file.Modified}
}
