package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
	assert.Equal(t, "RENAME", OpRename.String())
	assert.Equal(t, "UNKNOWN", Operation(42).String())
}

func TestOperation_Removes(t *testing.T) {
	assert.True(t, OpDelete.Removes())
	assert.True(t, OpRename.Removes())
	assert.False(t, OpCreate.Removes())
	assert.False(t, OpModify.Removes())
}

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options{DebounceWindow: 10 * time.Millisecond}.WithDefaults()

	assert.Equal(t, 10*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, 5*time.Second, opts.PollInterval)
	assert.Equal(t, 100, opts.EventBufferSize)

	assert.Equal(t, 500*time.Millisecond, Options{}.WithDefaults().DebounceWindow)
}
