// Package config loads htmlindex configuration from defaults, YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Aman-CERP/htmlindex/internal/errors"
	"github.com/Aman-CERP/htmlindex/internal/logging"
	"github.com/Aman-CERP/htmlindex/internal/store"
	"github.com/Aman-CERP/htmlindex/internal/tokenize"
)

// ProjectConfigNames are the project config files looked up, in order.
var ProjectConfigNames = []string{".htmlindex.yaml", ".htmlindex.yml"}

// Config is the complete htmlindex configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Index     IndexConfig     `yaml:"index"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Walk      WalkConfig      `yaml:"walk"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Logging   LoggingConfig   `yaml:"logging"`
	Watch     WatchConfig     `yaml:"watch"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// IndexConfig configures index storage.
type IndexConfig struct {
	// Path is the index directory (-index).
	Path string `yaml:"path"`
	// Backend is bleve or sqlite.
	Backend string `yaml:"backend"`
	// BatchSize is the number of buffered operations per commit.
	BatchSize int `yaml:"batch_size"`
}

// AnalysisConfig configures tokenization.
type AnalysisConfig struct {
	// Analyzer is boundary, standard, english or custom.
	Analyzer string `yaml:"analyzer"`
	// StopWords is the stop list of the custom analyzer.
	StopWords []string `yaml:"stop_words"`
	// Stem enables the porter stemmer of the custom analyzer.
	Stem bool `yaml:"stem"`
	// Workers caps parallel token counting. 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// ParallelThreshold is the token count above which counting fans out.
	ParallelThreshold int `yaml:"parallel_threshold"`
}

// WalkConfig configures traversal.
type WalkConfig struct {
	// Exclude holds doublestar patterns of paths to skip.
	Exclude []string `yaml:"exclude"`
}

// ArtifactsConfig configures the side files.
type ArtifactsConfig struct {
	// Enabled is nil when unset so files can turn artifacts off explicitly.
	Enabled *bool `yaml:"enabled"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is the quiet period before a batch of events is processed.
	Debounce string `yaml:"debounce"`
	// CacheSize bounds the recently indexed path cache.
	CacheSize int `yaml:"cache_size"`
}

// MetricsConfig configures metrics output.
type MetricsConfig struct {
	// Textfile is where run metrics are written after a run. Empty disables.
	Textfile string `yaml:"textfile"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	enabled := true
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path:      "index",
			Backend:   string(store.BackendBleve),
			BatchSize: store.DefaultBatchSize,
		},
		Analysis: AnalysisConfig{
			Analyzer:          tokenize.KindStandard,
			ParallelThreshold: tokenize.DefaultParallelThreshold,
		},
		Artifacts: ArtifactsConfig{Enabled: &enabled},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    logging.FormatAuto,
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Watch: WatchConfig{
			Debounce:  "500ms",
			CacheSize: 4096,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/htmlindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/htmlindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "htmlindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "htmlindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "htmlindex", "config.yaml")
}

// Load loads configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/htmlindex/config.yaml)
//  3. Project config: explicitPath if set, else .htmlindex.yaml in dir
//  4. Environment variables (HTMLINDEX_*)
//
// The result is validated. CLI flags are applied by the caller afterwards.
func Load(dir, explicitPath string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return nil, apperrors.New(apperrors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file %s not found", explicitPath), nil).
				WithSuggestion("check the --config path")
		}
		if err := cfg.loadYAML(explicitPath); err != nil {
			return nil, err
		}
	} else if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromDir loads the first project config file found in dir.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range ProjectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return apperrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.Backend != "" {
		c.Index.Backend = other.Index.Backend
	}
	if other.Index.BatchSize != 0 {
		c.Index.BatchSize = other.Index.BatchSize
	}

	if other.Analysis.Analyzer != "" {
		c.Analysis.Analyzer = other.Analysis.Analyzer
	}
	if len(other.Analysis.StopWords) > 0 {
		c.Analysis.StopWords = other.Analysis.StopWords
	}
	if other.Analysis.Stem {
		c.Analysis.Stem = true
	}
	if other.Analysis.Workers != 0 {
		c.Analysis.Workers = other.Analysis.Workers
	}
	if other.Analysis.ParallelThreshold != 0 {
		c.Analysis.ParallelThreshold = other.Analysis.ParallelThreshold
	}

	if len(other.Walk.Exclude) > 0 {
		c.Walk.Exclude = append(c.Walk.Exclude, other.Walk.Exclude...)
	}

	if other.Artifacts.Enabled != nil {
		enabled := *other.Artifacts.Enabled
		c.Artifacts.Enabled = &enabled
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.CacheSize != 0 {
		c.Watch.CacheSize = other.Watch.CacheSize
	}

	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}
}

// applyEnvOverrides applies HTMLINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HTMLINDEX_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("HTMLINDEX_BACKEND"); v != "" {
		c.Index.Backend = v
	}
	if v := os.Getenv("HTMLINDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.BatchSize = n
		}
	}
	if v := os.Getenv("HTMLINDEX_ANALYZER"); v != "" {
		c.Analysis.Analyzer = v
	}
	if v := os.Getenv("HTMLINDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Analysis.Workers = n
		}
	}
	if v := os.Getenv("HTMLINDEX_ARTIFACTS"); v != "" {
		enabled := strings.ToLower(v) == "true" || v == "1"
		c.Artifacts.Enabled = &enabled
	}
	if v := os.Getenv("HTMLINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HTMLINDEX_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("HTMLINDEX_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("HTMLINDEX_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("HTMLINDEX_METRICS_FILE"); v != "" {
		c.Metrics.Textfile = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch store.Backend(strings.ToLower(c.Index.Backend)) {
	case store.BackendBleve, store.BackendSQLite:
	default:
		return apperrors.ConfigError(fmt.Sprintf("index.backend must be 'bleve' or 'sqlite', got %s", c.Index.Backend), nil)
	}
	if c.Index.BatchSize < 0 {
		return apperrors.ConfigError(fmt.Sprintf("index.batch_size must be non-negative, got %d", c.Index.BatchSize), nil)
	}

	switch strings.ToLower(c.Analysis.Analyzer) {
	case tokenize.KindBoundary, tokenize.KindStandard, tokenize.KindEnglish, tokenize.KindCustom:
	default:
		return apperrors.ConfigError(fmt.Sprintf("analysis.analyzer must be 'boundary', 'standard', 'english' or 'custom', got %s", c.Analysis.Analyzer), nil)
	}
	if c.Analysis.Workers < 0 {
		return apperrors.ConfigError(fmt.Sprintf("analysis.workers must be non-negative, got %d", c.Analysis.Workers), nil)
	}
	if c.Analysis.ParallelThreshold < 0 {
		return apperrors.ConfigError(fmt.Sprintf("analysis.parallel_threshold must be non-negative, got %d", c.Analysis.ParallelThreshold), nil)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return apperrors.ConfigError(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", logging.FormatAuto, logging.FormatText, logging.FormatJSON:
	default:
		return apperrors.ConfigError(fmt.Sprintf("logging.format must be 'auto', 'text' or 'json', got %s", c.Logging.Format), nil)
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d <= 0 {
		return apperrors.ConfigError(fmt.Sprintf("watch.debounce must be a positive duration, got %q", c.Watch.Debounce), err)
	}
	if c.Watch.CacheSize < 0 {
		return apperrors.ConfigError(fmt.Sprintf("watch.cache_size must be non-negative, got %d", c.Watch.CacheSize), nil)
	}

	return nil
}

// ArtifactsEnabled reports whether side files are written.
func (c *Config) ArtifactsEnabled() bool {
	return c.Artifacts.Enabled == nil || *c.Artifacts.Enabled
}

// SetArtifactsEnabled overrides the artifacts setting.
func (c *Config) SetArtifactsEnabled(enabled bool) {
	c.Artifacts.Enabled = &enabled
}

// WatchDebounce returns the parsed debounce window.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// StoreConfig returns the index storage settings.
func (c *Config) StoreConfig(analyzer *tokenize.Analyzer) store.Config {
	return store.Config{
		Backend:   store.Backend(strings.ToLower(c.Index.Backend)),
		BatchSize: c.Index.BatchSize,
		Analyzer:  analyzer,
	}
}

// AnalyzerOptions returns the tokenizer settings.
func (c *Config) AnalyzerOptions() tokenize.Options {
	return tokenize.Options{
		Kind:      c.Analysis.Analyzer,
		StopWords: c.Analysis.StopWords,
		Stem:      c.Analysis.Stem,
	}
}

// CountOptions returns the token counting settings.
func (c *Config) CountOptions() tokenize.CountOptions {
	return tokenize.CountOptions{
		Workers:           c.Analysis.Workers,
		ParallelThreshold: c.Analysis.ParallelThreshold,
	}
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		FilePath:  c.Logging.File,
		MaxSizeMB: c.Logging.MaxSizeMB,
		MaxFiles:  c.Logging.MaxFiles,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
