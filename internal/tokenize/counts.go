package tokenize

import (
	"context"
	"iter"
	"maps"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultParallelThreshold is the token count above which Count fans out.
const DefaultParallelThreshold = 4096

// Counts is an immutable term -> frequency mapping.
// Keys are never empty and every count is positive.
type Counts struct {
	terms map[string]int
	total int
}

// NewCounts copies m into a Counts, dropping empty keys and non-positive counts.
func NewCounts(m map[string]int) Counts {
	c := Counts{terms: make(map[string]int, len(m))}
	for term, n := range m {
		if term == "" || n <= 0 {
			continue
		}
		c.terms[term] = n
		c.total += n
	}
	return c
}

// Get returns the frequency of term, or 0.
func (c Counts) Get(term string) int { return c.terms[term] }

// Len returns the number of distinct terms.
func (c Counts) Len() int { return len(c.terms) }

// Total returns the number of counted tokens.
func (c Counts) Total() int { return c.total }

// IsEmpty reports whether no token was counted.
func (c Counts) IsEmpty() bool { return len(c.terms) == 0 }

// Terms returns the distinct terms in lexical order.
func (c Counts) Terms() []string {
	return slices.Sorted(maps.Keys(c.terms))
}

// All iterates terms in lexical order with their counts.
func (c Counts) All() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, term := range c.Terms() {
			if !yield(term, c.terms[term]) {
				return
			}
		}
	}
}

// Map returns a copy of the underlying mapping.
func (c Counts) Map() map[string]int {
	return maps.Clone(c.terms)
}

// CountOptions tunes the reduction.
type CountOptions struct {
	// Workers caps parallel reducers. Zero means GOMAXPROCS.
	Workers int

	// ParallelThreshold is the token count above which reduction runs in
	// parallel. Zero means DefaultParallelThreshold.
	ParallelThreshold int
}

func (o CountOptions) withDefaults() CountOptions {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = DefaultParallelThreshold
	}
	return o
}

// Count lower-cases text, analyzes it and returns the frequency of every
// non-empty term. Large token lists are reduced in parallel with per-worker
// maps merged at the end.
func Count(ctx context.Context, a TextAnalyzer, text string, opts CountOptions) (Counts, error) {
	opts = opts.withDefaults()

	var tokens []string
	for tok := range a.Tokens(strings.ToLower(text)) {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}

	if len(tokens) == 0 {
		return NewCounts(nil), nil
	}
	if len(tokens) <= opts.ParallelThreshold || opts.Workers == 1 {
		return countSlice(tokens), nil
	}

	chunk := (len(tokens) + opts.Workers - 1) / opts.Workers
	partials := make([]map[string]int, 0, opts.Workers)
	for start := 0; start < len(tokens); start += chunk {
		partials = append(partials, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range partials {
		start := i * chunk
		end := min(start+chunk, len(tokens))
		g.Go(func() error {
			local := make(map[string]int)
			for j, tok := range tokens[start:end] {
				if j%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				local[tok]++
			}
			partials[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Counts{}, err
	}

	merged := partials[0]
	for _, p := range partials[1:] {
		for tok, n := range p {
			merged[tok] += n
		}
	}
	return Counts{terms: merged, total: len(tokens)}, nil
}

func countSlice(tokens []string) Counts {
	m := make(map[string]int)
	for _, tok := range tokens {
		m[tok]++
	}
	return Counts{terms: m, total: len(tokens)}
}
