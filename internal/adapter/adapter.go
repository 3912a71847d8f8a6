// Package adapter defines the parse contract the benchmark core consumes
// and ships two reference adapters. The core never inspects a parser's
// native output: it caches the raw bytes as an opaque blob and only works
// with the canonical pages the adapter derives from them.
package adapter

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parser-bench/internal/model"
)

// ErrAdapterFailure marks a parser that failed to produce output for a
// page. Recorded and scored as zero; never aborts the batch.
var ErrAdapterFailure = eris.New("adapter: parse failure")

// ParseResult is one page's worth of raw parser output plus the
// harness-visible cost of producing it.
type ParseResult struct {
	// Raw is the parser-native output, opaque to the core. Cached for replay.
	Raw []byte
	// CostUSD is the adapter-reported cost of this invocation, zero for
	// local parsers.
	CostUSD float64
}

// Parser is the contract every benchmarked parser satisfies.
type Parser interface {
	// Name identifies the parser on the leaderboard.
	Name() string

	// ConfigFingerprint is an opaque digest of every adapter setting that
	// could change output. It is folded into the cache key so differently
	// configured runs never share cache slots.
	ConfigFingerprint() string

	// Parse produces the parser-native output for one page. Implementations
	// must honor ctx cancellation; callers bound every invocation with a
	// timeout.
	Parse(ctx context.Context, pdfPath string, pageNumber int) (*ParseResult, error)

	// ToCanonical converts cached raw output into the canonical page.
	ToCanonical(documentID string, pageNumber int, raw []byte) (model.CanonicalPage, error)
}

// Registry holds the configured parsers by name.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser; duplicate names are an error.
func (r *Registry) Register(p Parser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.parsers[p.Name()]; exists {
		return eris.Errorf("adapter: parser %q already registered", p.Name())
	}
	r.parsers[p.Name()] = p
	return nil
}

// Get returns the named parser.
func (r *Registry) Get(name string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[name]
	if !ok {
		return nil, eris.Errorf("adapter: unknown parser %q", name)
	}
	return p, nil
}

// Names returns the registered parser names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
