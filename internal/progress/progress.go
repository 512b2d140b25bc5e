// Package progress reports indexing progress on a terminal.
package progress

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Reporter receives one call per processed file.
type Reporter interface {
	Start(description string)
	Increment(path string)
	Finish()
}

// NewReporter returns a spinner on out when enabled and out is a terminal,
// and a no-op reporter otherwise.
func NewReporter(enabled bool, out *os.File) Reporter {
	if !enabled || out == nil || !isatty.IsTerminal(out.Fd()) {
		return Noop{}
	}
	return NewTerminalReporter(out)
}

// TerminalReporter shows a spinner with a running file count.
// The total is unknown because files are processed while the tree is walked.
type TerminalReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewTerminalReporter creates a reporter writing to out.
func NewTerminalReporter(out io.Writer) *TerminalReporter {
	return &TerminalReporter{out: out}
}

func (r *TerminalReporter) Start(description string) {
	r.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Increment(path string) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// Noop discards progress.
type Noop struct{}

func (Noop) Start(string)     {}
func (Noop) Increment(string) {}
func (Noop) Finish()          {}
