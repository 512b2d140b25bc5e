package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/htmlindex/internal/store"
	"github.com/Aman-CERP/htmlindex/internal/walker"
	"github.com/Aman-CERP/htmlindex/internal/watcher"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Index -docs, then keep the index up to date until interrupted",
		Long: `Watch runs an update pass over -docs and then follows the tree.
Written files are re-indexed and removed or renamed files are deleted
from the index. Changes are debounced (watch.debounce, default 500ms).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}
}

func runWatch(cmd *cobra.Command, opts *options) error {
	if opts.docs == "" {
		return printUsage(cmd)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := walker.CheckRoot(opts.docs); err != nil {
		return err
	}

	stopProfiling, err := startProfiling(opts.profile)
	if err != nil {
		return err
	}
	defer stopProfiling()

	var syncer *watcher.Syncer
	remember := func(path string, modified int64) {
		if syncer != nil {
			syncer.Remember(path, modified)
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Indexing to directory '%s'...\n", cfg.Index.Path)

	s, err := openSession(cfg, store.ModeCreateOrAppend, opts.progress, remember)
	if err != nil {
		return err
	}

	syncer, err = watcher.NewSyncer(s.runner, cfg.Watch.CacheSize)
	if err != nil {
		return errors.Join(err, s.close())
	}

	return runErr(ctx, watchLoop(ctx, s, syncer, opts.docs), s.close())
}

// watchLoop runs the initial pass and then applies changes until ctx ends.
// Cancellation is a clean exit.
func watchLoop(ctx context.Context, s *session, syncer *watcher.Syncer, docs string) error {
	result, err := s.runner.Run(ctx, docs)
	if err != nil {
		return err
	}
	if err := s.runner.Flush(ctx); err != nil {
		return err
	}
	slog.Info("watch_initial_pass_complete",
		slog.Int("indexed", result.Indexed),
		slog.Int("skipped", result.Skipped))

	indexPath := filepath.Clean(s.cfg.Index.Path)
	w, err := watcher.NewHybridWatcher(watcher.Options{
		DebounceWindow: s.cfg.WatchDebounce(),
		Exclude:        s.cfg.Walk.Exclude,
		Skip:           []string{indexPath, indexPath + ".lock"},
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, docs) }()

	slog.Info("watch_started",
		slog.String("root", docs),
		slog.String("type", w.WatcherType()))

	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx, w) }()

	select {
	case err = <-startErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		err = <-done
	case err = <-done:
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
