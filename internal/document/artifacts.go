package document

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
	"github.com/Aman-CERP/htmlindex/internal/tokenize"
)

// Artifact file suffixes.
const (
	ContentsSuffix = "_contents.txt"
	TitleSuffix    = "_title.txt"
	TokensSuffix   = "_tokens.txt"
)

// IsArtifact reports whether path names a side file written by
// WriteArtifacts.
func IsArtifact(path string) bool {
	return strings.HasSuffix(path, ContentsSuffix) ||
		strings.HasSuffix(path, TitleSuffix) ||
		strings.HasSuffix(path, TokensSuffix)
}

// ErrNoExtension is matched (via errors.Is) by ArtifactPathsFor failures on
// file names without a '.'.
var ErrNoExtension = apperrors.New(apperrors.ErrCodeNoExtension, "file name has no extension", nil)

// ArtifactPaths locates the three side files of one source file.
type ArtifactPaths struct {
	Contents string
	Title    string
	Tokens   string
}

// ArtifactPathsFor strips the file name from its last '.' onwards and
// appends the artifact suffixes. a/b/report.html maps to
// a/b/report_contents.txt and so on.
func ArtifactPathsFor(path string) (ArtifactPaths, error) {
	dir, name := filepath.Split(path)
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return ArtifactPaths{}, apperrors.New(apperrors.ErrCodeNoExtension,
			fmt.Sprintf("cannot derive artifact names for %s: no extension", path), nil).
			WithDetail("path", path)
	}

	base := dir + name[:dot]
	return ArtifactPaths{
		Contents: base + ContentsSuffix,
		Title:    base + TitleSuffix,
		Tokens:   base + TokensSuffix,
	}, nil
}

// WriteArtifacts writes the body, title and token dump next to doc.Path.
// The writes are independent; every failure is returned, joined.
func WriteArtifacts(doc Document) error {
	paths, err := ArtifactPathsFor(doc.Path)
	if err != nil {
		return err
	}

	var errs []error
	if err := writeFile(paths.Contents, func(w io.Writer) error {
		_, err := io.WriteString(w, doc.Contents)
		return err
	}); err != nil {
		errs = append(errs, err)
	}
	if err := writeFile(paths.Title, func(w io.Writer) error {
		_, err := io.WriteString(w, doc.Title)
		return err
	}); err != nil {
		errs = append(errs, err)
	}
	if err := writeFile(paths.Tokens, func(w io.Writer) error {
		return WriteTokenDump(w, doc.Tokens)
	}); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// WriteTokenDump writes one "token:count" line per term, sorted by term.
func WriteTokenDump(w io.Writer, counts tokenize.Counts) error {
	bw := bufio.NewWriter(w)
	for term, n := range counts.All() {
		if _, err := fmt.Fprintf(bw, "%s:%d\n", term, n); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeArtifactWrite, "failed to create "+path, err).
			WithDetail("path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = apperrors.New(apperrors.ErrCodeArtifactWrite, "failed to close "+path, cerr).
				WithDetail("path", path)
		}
	}()

	if err := write(f); err != nil {
		return apperrors.New(apperrors.ErrCodeArtifactWrite, "failed to write "+path, err).
			WithDetail("path", path)
	}
	return nil
}
