// Package walker enumerates the files under a docs root.
package walker

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Aman-CERP/htmlindex/internal/document"
	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
)

// Options configures a walk.
type Options struct {
	// Exclude holds doublestar patterns matched against slash-separated
	// paths relative to the root, and against the base name. A matching
	// directory is pruned. Empty means everything is yielded.
	Exclude []string
}

// CheckRoot reports whether root exists and can be read.
func CheckRoot(root string) error {
	_, err := statRoot(root)
	return err
}

func statRoot(root string) (fs.FileInfo, error) {
	info, err := os.Stat(root)
	if err == nil && info.IsDir() {
		var f *os.File
		if f, err = os.Open(root); err == nil {
			_ = f.Close()
		}
	}
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeDocsUnreadable,
			fmt.Sprintf("document directory '%s' does not exist or is not readable", root), err).
			WithDetail("path", root).
			WithSuggestion("check the -docs path")
	}
	return info, nil
}

// Walk yields every regular file reachable from root exactly once, in
// lexical order. A file root yields itself. Symbolic links are not
// descended into; a link is yielded only when it resolves to a regular
// file. Dangling links, links to directories, devices, pipes and sockets
// are skipped.
//
// Enumeration failures are yielded as (SourceFile{}, err) and end the walk.
// Breaking out of the range loop stops the walk.
func Walk(root string, opts Options) iter.Seq2[document.SourceFile, error] {
	return func(yield func(document.SourceFile, error) bool) {
		info, err := statRoot(root)
		if err != nil {
			yield(document.SourceFile{}, err)
			return
		}
		if !info.IsDir() {
			yield(document.NewSourceFile(root, info), nil)
			return
		}

		stopped := false
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && Excluded(root, path, opts.Exclude) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			info, ok, err := regularInfo(path, d)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if !yield(document.NewSourceFile(path, info), nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if walkErr != nil && !stopped {
			yield(document.SourceFile{}, apperrors.New(apperrors.ErrCodeWalkFailed,
				fmt.Sprintf("failed to walk %s", root), walkErr).
				WithDetail("path", root))
		}
	}
}

// regularInfo returns the file info to record for d, and false when d is
// not a regular file or a link to one.
func regularInfo(path string, d fs.DirEntry) (fs.FileInfo, bool, error) {
	switch {
	case d.Type().IsRegular():
		info, err := d.Info()
		return info, err == nil, err
	case d.Type()&fs.ModeSymlink != 0:
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil, false, nil
		}
		return info, true, nil
	default:
		return nil, false, nil
	}
}

// Excluded reports whether path, below root, matches any pattern.
func Excluded(root, path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
