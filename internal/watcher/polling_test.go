package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor reads raw polling events until one matches path and op.
func waitFor(t *testing.T, ch <-chan FileEvent, path string, op Operation) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case e, ok := <-ch:
			require.True(t, ok, "events channel closed")
			if e.Path == path && e.Operation == op {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s %s", op, path)
		}
	}
}

func TestPollingWatcher_DetectsLifecycle(t *testing.T) {
	// Given: a polling watcher over a tree with one file
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.html")
	require.NoError(t, os.WriteFile(existing, []byte("<p>old</p>"), 0o644))

	p := NewPollingWatcher(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Start(ctx, dir) }()
	time.Sleep(50 * time.Millisecond)

	// When: a file is created
	created := filepath.Join(dir, "new.html")
	require.NoError(t, os.WriteFile(created, []byte("<p>new</p>"), 0o644))

	// Then: a create event with the root-joined path is reported
	waitFor(t, p.Events(), created, OpCreate)

	// When: the existing file changes size
	require.NoError(t, os.WriteFile(existing, []byte("<p>old, longer now</p>"), 0o644))
	waitFor(t, p.Events(), existing, OpModify)

	// When: it is removed
	require.NoError(t, os.Remove(existing))
	waitFor(t, p.Events(), existing, OpDelete)
}

func TestPollingWatcher_MissingRoot(t *testing.T) {
	p := NewPollingWatcher(time.Second)

	err := p.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial scan")
}

func TestPollingWatcher_StopClosesChannels(t *testing.T) {
	p := NewPollingWatcher(time.Second)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	_, ok := <-p.Events()
	assert.False(t, ok)
	_, ok = <-p.Errors()
	assert.False(t, ok)
}
