// Package graphstore persists analyzed dependency graphs to an external
// graph database, so coupling structure can be queried with graph tooling
// outside the analyzer.
package graphstore

import (
	"context"

	"github.com/tkaracan/caliper/internal/coupling"
	"github.com/tkaracan/caliper/internal/graph"
)

// Repository is the storage abstraction for analyzed graphs.
type Repository interface {
	// StoreRun persists a graph and its computed metrics under a project name,
	// replacing any previous run for that project.
	StoreRun(ctx context.Context, project string, g *graph.DependencyGraph, metrics map[string]coupling.ModuleMetrics) error

	// LoadGraph reconstructs the stored dependency graph for a project.
	LoadGraph(ctx context.Context, project string) (*graph.DependencyGraph, error)

	// QueryDependents returns the modules that depend on the given module.
	QueryDependents(ctx context.Context, project, module string) ([]string, error)

	Close(ctx context.Context) error
}
