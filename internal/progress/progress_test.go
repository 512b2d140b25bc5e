package progress

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReporter_DisabledIsNoop(t *testing.T) {
	assert.IsType(t, Noop{}, NewReporter(false, os.Stderr))
}

func TestNewReporter_NonTerminalIsNoop(t *testing.T) {
	// Given: a regular file rather than a terminal
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	assert.IsType(t, Noop{}, NewReporter(true, f))
}

func TestTerminalReporter_CountsFiles(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf)

	r.Start("Indexing")
	for range 3 {
		r.Increment("a.html")
	}

	assert.Equal(t, int64(3), r.bar.State().CurrentNum)
	r.Finish()
}

func TestTerminalReporter_IncrementBeforeStart(t *testing.T) {
	r := NewTerminalReporter(&bytes.Buffer{})

	assert.NotPanics(t, func() {
		r.Increment("a.html")
		r.Finish()
	})
}
