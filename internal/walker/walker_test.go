package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/htmlindex/internal/document"
	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("<p>"+f+"</p>"), 0o644))
	}
}

func collect(t *testing.T, root string, opts Options) []string {
	t.Helper()
	var paths []string
	for file, err := range Walk(root, opts) {
		require.NoError(t, err)
		rel, rerr := filepath.Rel(root, file.Path)
		require.NoError(t, rerr)
		paths = append(paths, filepath.ToSlash(rel))
	}
	return paths
}

func TestWalk_YieldsEveryFileOnceInLexicalOrder(t *testing.T) {
	// Given: a nested tree with empty directories
	root := t.TempDir()
	writeTree(t, root, "b.html", "a/z.txt", "a/b/report.html", "c/d/e/f.html")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "deeper"), 0o755))

	// When: walking
	paths := collect(t, root, Options{})

	// Then: every regular file appears exactly once, no directories
	assert.Equal(t, []string{"a/b/report.html", "a/z.txt", "b.html", "c/d/e/f.html"}, paths)
}

func TestWalk_FileRootYieldsItself(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "single.html")
	path := filepath.Join(root, "single.html")

	var got []document.SourceFile
	for file, err := range Walk(path, Options{}) {
		require.NoError(t, err)
		got = append(got, file)
	}

	require.Len(t, got, 1)
	assert.Equal(t, path, got[0].Path)
	assert.Positive(t, got[0].Modified)
}

func TestWalk_MissingRootIsFatal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	var errs []error
	for _, err := range Walk(missing, Options{}) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.Equal(t, apperrors.ErrCodeDocsUnreadable, apperrors.GetCode(errs[0]))
	assert.True(t, apperrors.IsFatal(errs[0]))
}

func TestCheckRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.html")

	assert.NoError(t, CheckRoot(root))
	assert.NoError(t, CheckRoot(filepath.Join(root, "a.html")))

	err := CheckRoot(filepath.Join(root, "nope"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDocsUnreadable, apperrors.GetCode(err))
}

func TestWalk_UnlistableDirectoryIsWalkError(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	// Given: a subdirectory that cannot be listed
	root := t.TempDir()
	writeTree(t, root, "a.html", "locked/b.html")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	// When: walking
	var lastErr error
	for _, err := range Walk(root, Options{}) {
		if err != nil {
			lastErr = err
		}
	}

	// Then: the enumeration failure surfaces
	require.Error(t, lastErr)
	assert.Equal(t, apperrors.ErrCodeWalkFailed, apperrors.GetCode(lastErr))
}

func TestWalk_EarlyBreakStops(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "1.html", "2.html", "3.html")

	count := 0
	for _, err := range Walk(root, Options{}) {
		require.NoError(t, err)
		count++
		if count == 2 {
			break
		}
	}

	assert.Equal(t, 2, count)
}

func TestWalk_Exclude(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "keep.html", "drafts/x.html", "a/drafts/y.html", "a/b.tmp", "a/c.html")

	paths := collect(t, root, Options{Exclude: []string{"drafts", "**/*.tmp"}})

	assert.Equal(t, []string{"a/c.html", "keep.html"}, paths)
}

func TestWalk_SymlinkToFileIsYieldedNotFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	// Given: a link to a file outside the root
	outside := t.TempDir()
	writeTree(t, outside, "hidden.html")
	root := t.TempDir()
	writeTree(t, root, "a.html")
	require.NoError(t, os.Symlink(filepath.Join(outside, "hidden.html"), filepath.Join(root, "link.html")))

	// When: walking
	var files []document.SourceFile
	for file, err := range Walk(root, Options{}) {
		require.NoError(t, err)
		files = append(files, file)
	}

	// Then: the link is an entry under its own path
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(root, "link.html"), files[1].Path)
}

func TestWalk_SkipsNonRegularEntries(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	// Given: links to a directory and to a missing target
	root := t.TempDir()
	writeTree(t, root, "sub/a.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	// When: walking
	paths := collect(t, root, Options{})

	// Then: only the regular file is yielded; the linked directory is not entered
	assert.Equal(t, []string{"sub/a.txt"}, paths)
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		patterns []string
		expected bool
	}{
		{"no patterns", "/r/a.html", nil, false},
		{"base name match", "/r/x/y/node_modules", []string{"node_modules"}, true},
		{"relative glob", "/r/x/y.bak", []string{"x/*.bak"}, true},
		{"double star", "/r/x/y/z.bak", []string{"**/*.bak"}, true},
		{"no match", "/r/x/y.html", []string{"*.bak"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Excluded("/r", tt.path, tt.patterns))
		})
	}
}
