package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
	"github.com/Aman-CERP/htmlindex/internal/extract"
	"github.com/Aman-CERP/htmlindex/internal/tokenize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceFile_UsesMillis(t *testing.T) {
	// Given: a file with a known mtime
	path := filepath.Join(t.TempDir(), "a.html")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	mtime := time.UnixMilli(1_700_000_000_123)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	info, err := os.Stat(path)
	require.NoError(t, err)

	// When: building the source file
	sf := NewSourceFile(path, info)

	// Then: modified is in milliseconds
	assert.Equal(t, path, sf.Path)
	assert.Equal(t, int64(1_700_000_000_123), sf.Modified)
}

func TestBuild(t *testing.T) {
	file := SourceFile{Path: "docs/a.html", Modified: 42}
	counts := tokenize.NewCounts(map[string]int{"hello": 1})

	doc := Build(file, extract.Content{Title: "Hello", Body: "World"}, counts)

	assert.Equal(t, "docs/a.html", doc.Path)
	assert.Equal(t, int64(42), doc.Modified)
	assert.Equal(t, "Hello", doc.Title)
	assert.Equal(t, "World", doc.Contents)
	assert.Equal(t, 1, doc.Tokens.Get("hello"))
}

func TestMinimal(t *testing.T) {
	doc := Minimal(SourceFile{Path: "docs/logo.png", Modified: 7})

	assert.Equal(t, Document{Path: "docs/logo.png", Modified: 7}, doc)
}

func TestArtifactPathsFor(t *testing.T) {
	tests := []struct {
		name string
		path string
		want ArtifactPaths
	}{
		{
			name: "nested report",
			path: "a/b/report.html",
			want: ArtifactPaths{
				Contents: "a/b/report_contents.txt",
				Title:    "a/b/report_title.txt",
				Tokens:   "a/b/report_tokens.txt",
			},
		},
		{
			name: "last dot wins",
			path: "a/page.v2.html",
			want: ArtifactPaths{
				Contents: "a/page.v2_contents.txt",
				Title:    "a/page.v2_title.txt",
				Tokens:   "a/page.v2_tokens.txt",
			},
		},
		{
			name: "dot in directory is ignored",
			path: "site.html/index.html",
			want: ArtifactPaths{
				Contents: "site.html/index_contents.txt",
				Title:    "site.html/index_title.txt",
				Tokens:   "site.html/index_tokens.txt",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArtifactPathsFor(tt.path)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArtifactPathsFor_NoExtension(t *testing.T) {
	_, err := ArtifactPathsFor("a.html.d/README")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoExtension))
	assert.Equal(t, apperrors.SeverityWarning, ErrNoExtension.Severity)
}

func TestWriteArtifacts_WritesThreeFiles(t *testing.T) {
	// Given: a built document in a temp dir
	dir := t.TempDir()
	doc := Document{
		Path:     filepath.Join(dir, "report.html"),
		Title:    "Hello",
		Contents: "World\ncafé",
		Tokens:   tokenize.NewCounts(map[string]int{"world": 1, "hello": 2}),
	}

	// When: writing artifacts
	require.NoError(t, WriteArtifacts(doc))

	// Then: contents is byte-for-byte the body
	contents, err := os.ReadFile(filepath.Join(dir, "report_contents.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte(doc.Contents), contents)

	title, err := os.ReadFile(filepath.Join(dir, "report_title.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(title))

	tokens, err := os.ReadFile(filepath.Join(dir, "report_tokens.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello:2\nworld:1\n", string(tokens))
}

func TestWriteArtifacts_OverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	doc := Document{Path: filepath.Join(dir, "a.html"), Title: "old title that is long"}
	require.NoError(t, WriteArtifacts(doc))

	doc.Title = "new"
	require.NoError(t, WriteArtifacts(doc))

	title, err := os.ReadFile(filepath.Join(dir, "a_title.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(title))
}

func TestWriteArtifacts_ReportsEachFailure(t *testing.T) {
	// Given: a directory where the artifact files should go already
	// occupied by directories of the same name
	dir := t.TempDir()
	for _, name := range []string{"a_contents.txt", "a_tokens.txt"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}
	doc := Document{Path: filepath.Join(dir, "a.html"), Title: "T"}

	// When: writing artifacts
	err := WriteArtifacts(doc)

	// Then: both failures are reported and the title still got written
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeArtifactWrite, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "a_contents.txt")
	assert.Contains(t, err.Error(), "a_tokens.txt")
	assert.FileExists(t, filepath.Join(dir, "a_title.txt"))
}

func TestWriteArtifacts_NoExtension(t *testing.T) {
	err := WriteArtifacts(Document{Path: filepath.Join(t.TempDir(), "Makefile")})

	assert.ErrorIs(t, err, ErrNoExtension)
}

func TestWriteTokenDump_Empty(t *testing.T) {
	var sb strings.Builder

	require.NoError(t, WriteTokenDump(&sb, tokenize.Counts{}))

	assert.Empty(t, sb.String())
}

func TestIsArtifact(t *testing.T) {
	assert.True(t, IsArtifact("a/b/report_contents.txt"))
	assert.True(t, IsArtifact("report_title.txt"))
	assert.True(t, IsArtifact("report_tokens.txt"))
	assert.False(t, IsArtifact("a/b/report.html"))
	assert.False(t, IsArtifact("notes.txt"))
}
