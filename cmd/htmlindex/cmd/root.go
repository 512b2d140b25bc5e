// Package cmd provides the CLI commands for htmlindex.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
	"github.com/Aman-CERP/htmlindex/internal/profiling"
	"github.com/Aman-CERP/htmlindex/pkg/version"
)

const usage = "htmlindex [-index INDEX_PATH] -docs DOCS_PATH [-update]\n\n" +
	"This indexes the documents in DOCS_PATH, creating an index in INDEX_PATH\n" +
	"that can be searched by path, title and contents."

// errUsage is returned after the usage banner has been printed.
var errUsage = errors.New("usage")

// options holds the flags shared by the index and watch commands.
type options struct {
	index       string
	docs        string
	update      bool
	configPath  string
	backend     string
	analyzer    string
	logLevel    string
	logFile     string
	debug       bool
	noArtifacts bool
	progress    bool
	metricsFile string
	profile     profiling.Options
}

// NewRootCmd creates the root command. Running it indexes -docs into -index.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "htmlindex",
		Short: "Index a tree of HTML documents",
		Long: `htmlindex walks a directory of HTML documents, extracts each title and
body, counts terms and commits one record per file to a persistent index.

Next to every .html file it writes name_contents.txt, name_title.txt and
name_tokens.txt.

Without -update the index is rebuilt from scratch. With -update existing
records are replaced by path and everything else is kept.`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.SetVersionTemplate("htmlindex version {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.UsageError(err.Error())
	})

	cmd.Flags().BoolVar(&opts.update, "update", false, "Replace records by path instead of rebuilding the index")
	addSessionFlags(cmd, opts)

	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// addSessionFlags registers the flags shared with subcommands.
func addSessionFlags(cmd *cobra.Command, opts *options) {
	f := cmd.PersistentFlags()
	f.StringVar(&opts.index, "index", "index", "Index directory")
	f.StringVar(&opts.docs, "docs", "", "Documents directory (required)")
	f.StringVar(&opts.configPath, "config", "", "Config file (default .htmlindex.yaml)")
	f.StringVar(&opts.backend, "backend", "", "Index backend: bleve or sqlite")
	f.StringVar(&opts.analyzer, "analyzer", "", "Analyzer: boundary, standard, english or custom")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.StringVar(&opts.logFile, "log-file", "", "Also write logs to this file, rotated by size")
	f.BoolVar(&opts.debug, "debug", false, "Shorthand for --log-level debug")
	f.BoolVar(&opts.noArtifacts, "no-artifacts", false, "Do not write the _contents/_title/_tokens files")
	f.BoolVar(&opts.progress, "progress", false, "Show a spinner while indexing (terminal only)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	f.StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	f.StringVar(&opts.profile.Heap, "profile-mem", "", "Write memory profile to file")
	f.StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return ExecuteArgs(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// ExecuteArgs runs the root command with args. Errors are printed to stderr
// before being returned.
func ExecuteArgs(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd()
	root.SetArgs(rewriteArgs(args))
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errUsage) {
		_, _ = fmt.Fprint(stderr, apperrors.FormatForCLI(err))
	}
	return err
}

// printUsage writes the usage banner to the error stream.
func printUsage(cmd *cobra.Command) error {
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: "+usage)
	return errUsage
}
