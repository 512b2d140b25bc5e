// Package tokenize turns extracted text into term counts.
//
// Analyzers are bleve analysis chains resolved through a registry cache, so
// the same chain that produces the token dump also analyzes the title and
// contents fields of the bleve index.
package tokenize

import (
	"fmt"
	"iter"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/analysis/tokenmap"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

// Analyzer kinds accepted by New.
const (
	KindBoundary = "boundary"
	KindStandard = "standard"
	KindEnglish  = "english"
	KindCustom   = "custom"
)

const (
	boundaryAnalyzerName = "htmlindex_boundary"
	customAnalyzerName   = "htmlindex_custom"
	customStopMapName    = "htmlindex_stop_map"
	customStopFilterName = "htmlindex_stop"
)

// TextAnalyzer splits text into terms.
// Tokens returns a lazy sequence; ranging over it again re-runs the analysis.
type TextAnalyzer interface {
	Tokens(text string) iter.Seq[string]
}

// Func adapts a plain function to TextAnalyzer.
type Func func(text string) iter.Seq[string]

// Tokens implements TextAnalyzer.
func (f Func) Tokens(text string) iter.Seq[string] { return f(text) }

// Options selects and parameterizes an analyzer.
type Options struct {
	// Kind is one of boundary, standard, english or custom.
	Kind string

	// StopWords is the stop list for the custom kind.
	StopWords []string

	// Stem enables the porter stemmer for the custom kind.
	Stem bool
}

// Analyzer is a bleve analysis chain exposed as a TextAnalyzer.
type Analyzer struct {
	kind      string
	name      string
	analyzer  analysis.Analyzer
	stopWords []string
	stem      bool
}

// New builds the analyzer described by opts. An empty kind selects standard.
func New(opts Options) (*Analyzer, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	if kind == "" {
		kind = KindStandard
	}

	a := &Analyzer{kind: kind, stopWords: opts.StopWords, stem: opts.Stem}
	cache := registry.NewCache()

	var err error
	switch kind {
	case KindBoundary:
		a.name = boundaryAnalyzerName
		a.analyzer, err = cache.DefineAnalyzer(a.name, a.analyzerConfig())
	case KindStandard:
		a.name = standard.Name
		a.analyzer, err = cache.AnalyzerNamed(a.name)
	case KindEnglish:
		a.name = en.AnalyzerName
		a.analyzer, err = cache.AnalyzerNamed(a.name)
	case KindCustom:
		a.name = customAnalyzerName
		if _, err = cache.DefineTokenMap(customStopMapName, a.stopMapConfig()); err != nil {
			return nil, fmt.Errorf("failed to define stop word map: %w", err)
		}
		if _, err = cache.DefineTokenFilter(customStopFilterName, a.stopFilterConfig()); err != nil {
			return nil, fmt.Errorf("failed to define stop filter: %w", err)
		}
		a.analyzer, err = cache.DefineAnalyzer(a.name, a.analyzerConfig())
	default:
		return nil, fmt.Errorf("unknown analyzer %q (want boundary, standard, english or custom)", opts.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s analyzer: %w", kind, err)
	}

	return a, nil
}

// Kind returns the configured analyzer kind.
func (a *Analyzer) Kind() string { return a.kind }

// Name returns the bleve analyzer name used in index mappings.
func (a *Analyzer) Name() string { return a.name }

// Tokens implements TextAnalyzer.
func (a *Analyzer) Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		for _, tok := range a.analyzer.Analyze([]byte(text)) {
			if !yield(string(tok.Term)) {
				return
			}
		}
	}
}

// Register adds the analyzer definition to an index mapping so indexed
// fields can reference it by Name. Built-in analyzers need no definition.
func (a *Analyzer) Register(m *mapping.IndexMappingImpl) error {
	switch a.kind {
	case KindBoundary:
		return m.AddCustomAnalyzer(a.name, a.analyzerConfig())
	case KindCustom:
		if err := m.AddCustomTokenMap(customStopMapName, a.stopMapConfig()); err != nil {
			return fmt.Errorf("failed to add stop word map: %w", err)
		}
		if err := m.AddCustomTokenFilter(customStopFilterName, a.stopFilterConfig()); err != nil {
			return fmt.Errorf("failed to add stop filter: %w", err)
		}
		return m.AddCustomAnalyzer(a.name, a.analyzerConfig())
	default:
		return nil
	}
}

func (a *Analyzer) analyzerConfig() map[string]interface{} {
	if a.kind == KindBoundary {
		return map[string]interface{}{
			"type":      custom.Name,
			"tokenizer": unicode.Name,
		}
	}

	filters := []string{lowercase.Name, customStopFilterName}
	if a.stem {
		filters = append(filters, porter.Name)
	}
	return map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": filters,
	}
}

func (a *Analyzer) stopMapConfig() map[string]interface{} {
	tokens := make([]interface{}, 0, len(a.stopWords))
	for _, w := range a.stopWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			tokens = append(tokens, w)
		}
	}
	return map[string]interface{}{
		"type":   tokenmap.Name,
		"tokens": tokens,
	}
}

func (a *Analyzer) stopFilterConfig() map[string]interface{} {
	return map[string]interface{}{
		"type":           stop.Name,
		"stop_token_map": customStopMapName,
	}
}

// Normalize joins title and body the way the token dump expects.
func Normalize(title, body string) string {
	return strings.ToLower(title + " " + body)
}
