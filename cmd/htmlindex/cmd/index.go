package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/htmlindex/internal/store"
	"github.com/Aman-CERP/htmlindex/internal/walker"
)

// runIndex indexes opts.docs once, in create or update mode.
func runIndex(cmd *cobra.Command, opts *options) error {
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

	start := time.Now()
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Indexing to directory '%s'...\n", cfg.Index.Path)

	s, err := openSession(cfg, store.ModeFor(opts.update), opts.progress, nil)
	if err != nil {
		return err
	}

	_, err = s.runner.Run(ctx, opts.docs)
	if err := runErr(ctx, err, s.close()); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "%d total milliseconds\n", time.Since(start).Milliseconds())
	return nil
}
