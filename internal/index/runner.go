package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Aman-CERP/htmlindex/internal/document"
	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
	"github.com/Aman-CERP/htmlindex/internal/extract"
	"github.com/Aman-CERP/htmlindex/internal/metrics"
	"github.com/Aman-CERP/htmlindex/internal/progress"
	"github.com/Aman-CERP/htmlindex/internal/store"
	"github.com/Aman-CERP/htmlindex/internal/tokenize"
	"github.com/Aman-CERP/htmlindex/internal/walker"
)

// RunnerConfig configures how files are processed.
type RunnerConfig struct {
	// Count tunes token counting.
	Count tokenize.CountOptions

	// WriteArtifacts enables the _contents/_title/_tokens side files.
	WriteArtifacts bool

	// Exclude holds walker exclude patterns.
	Exclude []string

	// OnIndexed, if set, is called after each successful commit with the
	// path and its modification time in Unix milliseconds.
	OnIndexed func(path string, modified int64)
}

// DefaultRunnerConfig returns the configuration of a plain CLI run.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{WriteArtifacts: true}
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Committer receives every document (required).
	Committer *Committer

	// Analyzer produces the token counts (required).
	Analyzer tokenize.TextAnalyzer

	// Parser extracts HTML content. Defaults to extract.HTMLParser.
	Parser extract.Parser

	// Metrics records per-file outcomes. Defaults to a fresh set.
	Metrics *metrics.Metrics

	// Progress is told about every processed file. Defaults to no-op.
	Progress progress.Reporter
}

// Result contains the outcome of a run.
type Result struct {
	// Files is the number of files yielded by the walker.
	Files int

	// Indexed is the number of documents committed.
	Indexed int

	// HTML is the number of committed documents that went through extraction.
	HTML int

	// Skipped is the number of files dropped after a recoverable failure.
	Skipped int

	// ArtifactErrors is the number of side files that could not be written.
	ArtifactErrors int

	// Duration is the total run time.
	Duration time.Duration
}

// Runner processes files into a Committer.
type Runner struct {
	committer *Committer
	analyzer  tokenize.TextAnalyzer
	parser    extract.Parser
	metrics   *metrics.Metrics
	progress  progress.Reporter
	config    RunnerConfig
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies, cfg RunnerConfig) (*Runner, error) {
	if deps.Committer == nil {
		return nil, fmt.Errorf("committer is required")
	}
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}

	parser := deps.Parser
	if parser == nil {
		parser = extract.NewHTMLParser()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	reporter := deps.Progress
	if reporter == nil {
		reporter = progress.Noop{}
	}

	return &Runner{
		committer: deps.Committer,
		analyzer:  deps.Analyzer,
		parser:    parser,
		metrics:   m,
		progress:  reporter,
		config:    cfg,
	}, nil
}

// Run walks root and processes every file. Side artifacts written by an
// earlier run are not indexed. Walk failures and context
// cancellation end the run with an error; per-file failures are logged and
// counted in Result.Skipped. The caller closes the Committer.
func (r *Runner) Run(ctx context.Context, root string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	r.progress.Start("Indexing")
	defer r.progress.Finish()

	for file, err := range walker.Walk(root, walker.Options{Exclude: r.config.Exclude}) {
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		if document.IsArtifact(file.Path) {
			slog.Debug("artifact_ignored", slog.String("path", file.Path))
			continue
		}

		result.Files++
		out, err := r.process(ctx, file)
		if err != nil && ctx.Err() != nil {
			result.Duration = time.Since(start)
			return result, ctx.Err()
		}
		result.add(out)
		r.progress.Increment(file.Path)
	}

	result.Duration = time.Since(start)
	slog.Info("index_run_complete",
		slog.String("root", root),
		slog.String("mode", r.committer.Mode().String()),
		slog.Int("files", result.Files),
		slog.Int("indexed", result.Indexed),
		slog.Int("skipped", result.Skipped),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))

	return result, nil
}

// IndexFile processes a single path. It returns the recoverable error that
// made the file be skipped, if any.
func (r *Runner) IndexFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeFileRead, fmt.Sprintf("cannot stat %s", path), err).
			WithDetail("path", path)
	}
	if info.IsDir() || document.IsArtifact(path) {
		return nil
	}
	_, err = r.process(ctx, document.NewSourceFile(path, info))
	return err
}

// RemoveFile deletes the records of a path that no longer exists.
func (r *Runner) RemoveFile(ctx context.Context, path string) error {
	if err := r.committer.Remove(ctx, path); err != nil {
		return apperrors.New(apperrors.ErrCodeCommitFailed, fmt.Sprintf("cannot remove %s", path), err).
			WithDetail("path", path)
	}
	slog.Info("document_removed", slog.String("path", path))
	return nil
}

// Flush makes buffered commits durable without ending the session.
func (r *Runner) Flush(ctx context.Context) error {
	return r.committer.Index().Flush(ctx)
}

// Metrics returns the collectors the runner records into.
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}

// fileOutcome is the result of processing one file.
type fileOutcome struct {
	indexed        bool
	html           bool
	artifactErrors int
}

func (res *Result) add(out fileOutcome) {
	switch {
	case out.indexed:
		res.Indexed++
		if out.html {
			res.HTML++
		}
	default:
		res.Skipped++
	}
	res.ArtifactErrors += out.artifactErrors
}

// process reads, extracts, counts, writes artifacts and commits one file.
// A returned error means the file was skipped.
func (r *Runner) process(ctx context.Context, file document.SourceFile) (out fileOutcome, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeIndexed
		if err != nil {
			outcome = metrics.OutcomeFailed
			slog.Warn("file_skipped", append([]any{slog.String("path", file.Path)}, apperrors.FormatForLog(err)...)...)
		}
		r.metrics.ObserveFile(outcome, time.Since(start))
	}()

	doc, html, err := r.build(ctx, file)
	if err != nil {
		return out, err
	}
	out.html = html

	if html && r.config.WriteArtifacts {
		out.artifactErrors = r.writeArtifacts(doc)
	}

	if err := r.committer.Commit(ctx, doc); err != nil {
		return out, apperrors.New(apperrors.ErrCodeCommitFailed, fmt.Sprintf("cannot commit %s", file.Path), err).
			WithDetail("path", file.Path)
	}
	r.metrics.ObserveCommit(r.committer.Mode().String())
	out.indexed = true
	if r.config.OnIndexed != nil {
		r.config.OnIndexed(file.Path, file.Modified)
	}

	verb := "adding"
	if r.committer.Mode() == store.ModeCreateOrAppend {
		verb = "updating"
	}
	slog.Info("document_committed",
		slog.String("action", verb),
		slog.String("path", file.Path),
		slog.String("title", doc.Title))

	return out, nil
}

// build opens the file and assembles its document. Non-HTML files get the
// minimal record but must still be readable.
func (r *Runner) build(ctx context.Context, file document.SourceFile) (document.Document, bool, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return document.Document{}, false, apperrors.New(apperrors.ErrCodeFileRead,
			fmt.Sprintf("cannot read %s", file.Path), err).WithDetail("path", file.Path)
	}
	defer f.Close()

	if !extract.IsHTML(file.Path) {
		return document.Minimal(file), false, nil
	}

	content, err := r.parser.Parse(file.Path, f)
	if err != nil {
		return document.Document{}, true, apperrors.New(apperrors.ErrCodeFileRead,
			fmt.Sprintf("cannot read %s", file.Path), err).WithDetail("path", file.Path)
	}

	counts, err := tokenize.Count(ctx, r.analyzer, tokenize.Normalize(content.Title, content.Body), r.config.Count)
	if err != nil {
		return document.Document{}, true, apperrors.New(apperrors.ErrCodeExtractFailed,
			fmt.Sprintf("cannot count tokens of %s", file.Path), err).WithDetail("path", file.Path)
	}
	r.metrics.TokensTotal.Add(float64(counts.Total()))

	return document.Build(file, content, counts), true, nil
}

// writeArtifacts writes the side files and logs each failure. It returns
// the number of failed writes.
func (r *Runner) writeArtifacts(doc document.Document) int {
	err := document.WriteArtifacts(doc)
	if err == nil {
		return 0
	}

	failures := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		failures = joined.Unwrap()
	}
	for _, failure := range failures {
		r.metrics.ArtifactFailures.Inc()
		event := "artifact_write_failed"
		if errors.Is(failure, document.ErrNoExtension) {
			event = "artifact_path_invalid"
		}
		slog.Warn(event, append([]any{slog.String("path", doc.Path)}, apperrors.FormatForLog(failure)...)...)
	}
	return len(failures)
}
