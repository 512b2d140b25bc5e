package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/htmlindex/internal/config"
	"github.com/Aman-CERP/htmlindex/internal/index"
	"github.com/Aman-CERP/htmlindex/internal/logging"
	"github.com/Aman-CERP/htmlindex/internal/metrics"
	"github.com/Aman-CERP/htmlindex/internal/profiling"
	"github.com/Aman-CERP/htmlindex/internal/progress"
	"github.com/Aman-CERP/htmlindex/internal/store"
	"github.com/Aman-CERP/htmlindex/internal/tokenize"
)

// loadConfig loads configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(".", opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("index") {
		cfg.Index.Path = opts.index
	}
	if opts.backend != "" {
		cfg.Index.Backend = opts.backend
	}
	if opts.analyzer != "" {
		cfg.Analysis.Analyzer = opts.analyzer
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Logging.File = opts.logFile
	}
	if opts.noArtifacts {
		cfg.SetArtifactsEnabled(false)
	}
	if opts.metricsFile != "" {
		cfg.Metrics.Textfile = opts.metricsFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is one open index with a runner feeding it.
type session struct {
	cfg       *config.Config
	committer *index.Committer
	runner    *index.Runner
	metrics   *metrics.Metrics
}

// openSession opens the index in mode and builds the runner. onIndexed may
// be nil.
func openSession(cfg *config.Config, mode store.Mode, showProgress bool, onIndexed func(string, int64)) (*session, error) {
	analyzer, err := tokenize.New(cfg.AnalyzerOptions())
	if err != nil {
		return nil, err
	}

	idx, err := store.Open(cfg.Index.Path, mode, cfg.StoreConfig(analyzer))
	if err != nil {
		return nil, err
	}

	committer, err := index.NewCommitter(idx)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	m := metrics.New()
	runCfg := index.RunnerConfig{
		Count:          cfg.CountOptions(),
		WriteArtifacts: cfg.ArtifactsEnabled(),
		Exclude:        cfg.Walk.Exclude,
		OnIndexed:      onIndexed,
	}
	runner, err := index.NewRunner(index.RunnerDependencies{
		Committer: committer,
		Analyzer:  analyzer,
		Metrics:   m,
		Progress:  progress.NewReporter(showProgress, os.Stderr),
	}, runCfg)
	if err != nil {
		_ = committer.Close()
		return nil, err
	}

	slog.Debug("index_opened",
		slog.String("path", cfg.Index.Path),
		slog.String("backend", cfg.Index.Backend),
		slog.String("analyzer", analyzer.Name()),
		slog.String("mode", mode.String()))

	return &session{cfg: cfg, committer: committer, runner: runner, metrics: m}, nil
}

// close ends the session and writes the metrics textfile if configured.
func (s *session) close() error {
	err := s.committer.Close()
	if path := s.cfg.Metrics.Textfile; path != "" {
		if werr := s.metrics.WriteTextfile(path); werr != nil {
			slog.Warn("metrics_write_failed",
				slog.String("path", path),
				slog.String("error", werr.Error()))
		}
	}
	return err
}

// setupLogging installs the default logger for cfg.
func setupLogging(cfg *config.Config) (func(), error) {
	cleanup, err := logging.SetupDefault(cfg.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return cleanup, nil
}

// startProfiling starts the requested profiles. The returned stop function
// logs failures instead of returning them.
func startProfiling(opts profiling.Options) (func(), error) {
	if !opts.Enabled() {
		return func() {}, nil
	}
	prof, err := profiling.Start(opts)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := prof.Stop(); err != nil {
			slog.Warn("profile_write_failed", slog.String("error", err.Error()))
		}
	}, nil
}

// runErr joins a run error with the close error, keeping a cancelled run
// distinguishable.
func runErr(ctx context.Context, run, closeErr error) error {
	if run != nil && ctx.Err() != nil {
		return errors.Join(ctx.Err(), closeErr)
	}
	return errors.Join(run, closeErr)
}
