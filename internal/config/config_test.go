package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
	"github.com/Aman-CERP/htmlindex/internal/store"
	"github.com/Aman-CERP/htmlindex/internal/tokenize"
)

// isolate points the user config at an empty directory and clears
// HTMLINDEX_* variables for the duration of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, name := range []string{
		"HTMLINDEX_INDEX_PATH", "HTMLINDEX_BACKEND", "HTMLINDEX_BATCH_SIZE",
		"HTMLINDEX_ANALYZER", "HTMLINDEX_WORKERS", "HTMLINDEX_ARTIFACTS",
		"HTMLINDEX_LOG_LEVEL", "HTMLINDEX_LOG_FORMAT", "HTMLINDEX_LOG_FILE",
		"HTMLINDEX_WATCH_DEBOUNCE", "HTMLINDEX_METRICS_FILE",
	} {
		t.Setenv(name, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "index", cfg.Index.Path)
	assert.Equal(t, string(store.BackendBleve), cfg.Index.Backend)
	assert.Equal(t, tokenize.KindStandard, cfg.Analysis.Analyzer)
	assert.True(t, cfg.ArtifactsEnabled())
	assert.Empty(t, cfg.Walk.Exclude)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir(), "")

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFileOverridesUserFile(t *testing.T) {
	// Given: a user config and a project config
	isolate(t)
	userDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "htmlindex")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(`
index:
  backend: sqlite
  batch_size: 7
analysis:
  analyzer: english
`), 0o644))

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".htmlindex.yaml"), []byte(`
analysis:
  analyzer: custom
  stop_words: [the, a]
  stem: true
walk:
  exclude: ["**/drafts/**"]
artifacts:
  enabled: false
`), 0o644))

	// When: loading
	cfg, err := Load(project, "")

	// Then: project values win, user values fill the rest
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, 7, cfg.Index.BatchSize)
	assert.Equal(t, tokenize.KindCustom, cfg.Analysis.Analyzer)
	assert.Equal(t, []string{"the", "a"}, cfg.Analysis.StopWords)
	assert.True(t, cfg.Analysis.Stem)
	assert.Equal(t, []string{"**/drafts/**"}, cfg.Walk.Exclude)
	assert.False(t, cfg.ArtifactsEnabled())
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".htmlindex.yml"), []byte("index:\n  path: out\n"), 0o644))

	cfg, err := Load(project, "")

	require.NoError(t, err)
	assert.Equal(t, "out", cfg.Index.Path)
}

func TestLoad_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metrics:\n  textfile: /tmp/h.prom\n"), 0o644))

	cfg, err := Load(t.TempDir(), path)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/h.prom", cfg.Metrics.Textfile)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	isolate(t)

	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigNotFound, apperrors.GetCode(err))
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".htmlindex.yaml"), []byte("index: [unclosed"), 0o644))

	_, err := Load(project, "")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetCode(err))
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HTMLINDEX_BACKEND", "sqlite")
	t.Setenv("HTMLINDEX_ANALYZER", "boundary")
	t.Setenv("HTMLINDEX_WORKERS", "3")
	t.Setenv("HTMLINDEX_ARTIFACTS", "false")
	t.Setenv("HTMLINDEX_LOG_LEVEL", "debug")
	t.Setenv("HTMLINDEX_WATCH_DEBOUNCE", "2s")

	cfg, err := Load(t.TempDir(), "")

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, tokenize.KindBoundary, cfg.Analysis.Analyzer)
	assert.Equal(t, 3, cfg.Analysis.Workers)
	assert.False(t, cfg.ArtifactsEnabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce())
}

func TestLoad_EnvInvalidValueFailsValidation(t *testing.T) {
	isolate(t)
	t.Setenv("HTMLINDEX_BACKEND", "lucene")

	_, err := Load(t.TempDir(), "")

	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.Contains(t, err.Error(), "index.backend")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad backend", func(c *Config) { c.Index.Backend = "x" }, "index.backend"},
		{"negative batch", func(c *Config) { c.Index.BatchSize = -1 }, "index.batch_size"},
		{"bad analyzer", func(c *Config) { c.Analysis.Analyzer = "x" }, "analysis.analyzer"},
		{"negative workers", func(c *Config) { c.Analysis.Workers = -1 }, "analysis.workers"},
		{"negative threshold", func(c *Config) { c.Analysis.ParallelThreshold = -1 }, "analysis.parallel_threshold"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }, "watch.debounce"},
		{"zero debounce", func(c *Config) { c.Watch.Debounce = "0s" }, "watch.debounce"},
		{"negative cache", func(c *Config) { c.Watch.CacheSize = -1 }, "watch.cache_size"},
		{"uppercase backend", func(c *Config) { c.Index.Backend = "SQLite" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := NewConfig()
	cfg.Index.Backend = "SQLite"
	cfg.Analysis.Workers = 2
	cfg.Logging.File = "/tmp/x.log"

	assert.Equal(t, store.BackendSQLite, cfg.StoreConfig(nil).Backend)
	assert.Equal(t, 2, cfg.CountOptions().Workers)
	assert.Equal(t, tokenize.KindStandard, cfg.AnalyzerOptions().Kind)
	assert.Equal(t, "/tmp/x.log", cfg.LoggerConfig().FilePath)

	cfg.SetArtifactsEnabled(false)
	assert.False(t, cfg.ArtifactsEnabled())
}
