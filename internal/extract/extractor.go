// Package extract defines the contract between Caliper and its per-language
// source extractors. The analysis core never parses source text: extractors
// emit immutable fragments of raw edges and type counts, and fragments merge
// by plain concatenation.
package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/tkaracan/caliper/internal/graph"
)

// Source is one input unit handed to an extractor, typically a file or a
// directory root.
type Source struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Fragment is the immutable output of scanning one source: a slice of raw
// dependency pairs and a slice of type-count records. Fragments from
// parallel scans are combined with Merge; the builder collapses duplicate
// edges and accumulates type counts, so merge order does not matter.
type Fragment struct {
	Edges      []graph.RawEdge   `json:"edges"`
	TypeCounts []graph.TypeCount `json:"type_counts,omitempty"`
}

// Merge concatenates fragments into one. Merging is associative and
// commutative up to ordering, and the builder is insensitive to ordering.
func Merge(fragments ...Fragment) Fragment {
	var out Fragment
	for _, f := range fragments {
		out.Edges = append(out.Edges, f.Edges...)
		out.TypeCounts = append(out.TypeCounts, f.TypeCounts...)
	}
	return out
}

// Extractor scans one source and reports its dependency fragment.
type Extractor interface {
	// Name returns the extractor identifier (e.g. "edgelist").
	Name() string
	// Extract scans a single source. Implementations must not retain or
	// mutate the returned fragment.
	Extract(ctx context.Context, source Source) (Fragment, error)
}

// Registry stores available extractors by name.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register adds an extractor, replacing any previous one with the same name.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Name()] = e
}

// Get returns the extractor with the given name.
func (r *Registry) Get(name string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[name]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for %q", name)
	}
	return e, nil
}
