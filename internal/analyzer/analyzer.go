// Package analyzer wires the dependency analysis pipeline together: raw
// extractor output in, graph + cycles + metrics + violations out. A run is a
// pure function of its input; the analyzer holds no state between runs, so
// concurrent runs over different inputs need no synchronization.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tkaracan/caliper/internal/coupling"
	"github.com/tkaracan/caliper/internal/cycles"
	"github.com/tkaracan/caliper/internal/graph"
	"github.com/tkaracan/caliper/internal/observability"
	"github.com/tkaracan/caliper/internal/sdp"
)

// Input is the raw material for one analysis run: the dependency pairs and
// type-count records assembled by the extraction layer.
type Input struct {
	Edges      []graph.RawEdge   `json:"edges"`
	TypeCounts []graph.TypeCount `json:"type_counts,omitempty"`
}

// Result is the complete output of one run. All collections are
// deterministically ordered; running twice on identical input produces
// byte-identical JSON.
type Result struct {
	Graph      *graph.DependencyGraph            `json:"graph"`
	Cycles     []cycles.Cycle                    `json:"cycles,omitempty"`
	Metrics    map[string]coupling.ModuleMetrics `json:"metrics"`
	Violations []sdp.Violation                   `json:"violations,omitempty"`
}

// Run executes the full pipeline. A DataIntegrityError from the builder
// aborts the run; there are no partial results. Zero modules is valid input
// and yields empty collections.
func Run(ctx context.Context, input Input) (*Result, error) {
	ctx, span := observability.StartRunSpan(ctx, len(input.Edges), len(input.TypeCounts))
	defer span.End()

	g, err := buildPhase(ctx, input)
	if err != nil {
		observability.RecordRunError(span, err)
		return nil, err
	}

	res := &Result{Graph: g}
	res.Cycles = cyclesPhase(ctx, g)
	res.Metrics = metricsPhase(ctx, g)
	res.Violations = violationsPhase(ctx, g, res.Metrics)

	span.SetAttributes(
		attribute.Int("caliper.modules", g.ModuleCount()),
		attribute.Int("caliper.cycles", len(res.Cycles)),
		attribute.Int("caliper.violations", len(res.Violations)),
	)
	return res, nil
}

func buildPhase(ctx context.Context, input Input) (*graph.DependencyGraph, error) {
	_, span := observability.StartPhaseSpan(ctx, "build")
	defer span.End()
	g, err := graph.Build(input.Edges, input.TypeCounts)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return g, nil
}

func cyclesPhase(ctx context.Context, g *graph.DependencyGraph) []cycles.Cycle {
	_, span := observability.StartPhaseSpan(ctx, "cycles")
	defer span.End()
	return cycles.Detect(g)
}

func metricsPhase(ctx context.Context, g *graph.DependencyGraph) map[string]coupling.ModuleMetrics {
	_, span := observability.StartPhaseSpan(ctx, "metrics")
	defer span.End()
	return coupling.Compute(g)
}

func violationsPhase(ctx context.Context, g *graph.DependencyGraph, metrics map[string]coupling.ModuleMetrics) []sdp.Violation {
	_, span := observability.StartPhaseSpan(ctx, "violations")
	defer span.End()
	return sdp.Analyze(g, metrics)
}

// JSON serializes the result to indented, deterministic JSON.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Summary returns a human-readable digest of the run for CLI output.
func (r *Result) Summary() string {
	var b strings.Builder
	b.WriteString(graph.FormatStats(r.Graph))

	if len(r.Cycles) > 0 {
		b.WriteString(fmt.Sprintf("\nCircular dependencies: %d\n", len(r.Cycles)))
		for i, c := range r.Cycles {
			b.WriteString(fmt.Sprintf("  %d: %s\n", i+1, strings.Join(c.Path, " -> ")))
		}
	} else {
		b.WriteString("\nNo circular dependencies.\n")
	}

	b.WriteString("\nModule metrics (Ca / Ce / I / A / D / zone):\n")
	for _, m := range r.Graph.Modules {
		mm := r.Metrics[m.Name]
		b.WriteString(fmt.Sprintf("  %-30s %3d %3d  %9s %9s %9s  %s\n",
			mm.Module, mm.Ca, mm.Ce,
			mm.Instability, mm.Abstractness, mm.Distance, mm.Zone))
	}

	if len(r.Violations) > 0 {
		b.WriteString(fmt.Sprintf("\nStable Dependencies Principle violations: %d\n", len(r.Violations)))
		for _, v := range r.Violations {
			b.WriteString(fmt.Sprintf("  %s -> %s (deltaI=%.3f)\n", v.Depender, v.Dependee, v.DeltaI))
		}
	} else {
		b.WriteString("\nNo Stable Dependencies Principle violations.\n")
	}

	return b.String()
}
