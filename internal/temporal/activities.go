package temporal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tkaracan/caliper/internal/analyzer"
	"github.com/tkaracan/caliper/internal/extract"
	"github.com/tkaracan/caliper/internal/graphstore"
	"github.com/tkaracan/caliper/internal/snapshot"
)

// AnalysisResult is the serializable result passed between activities. The
// full result travels as JSON; the counts let the workflow report without
// re-parsing it.
type AnalysisResult struct {
	ResultJSON      string
	ModuleCount     int
	DependencyCount int
	CycleCount      int
	ViolationCount  int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Registry *extract.Registry
	Store    *snapshot.Store
	Repo     graphstore.Repository
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// ExtractActivity runs one extractor over one source.
func ExtractActivity(ctx context.Context, extractorName string, source extract.Source) (extract.Fragment, error) {
	e, err := deps.Registry.Get(extractorName)
	if err != nil {
		return extract.Fragment{}, err
	}
	return e.Extract(ctx, source)
}

// AnalyzeActivity runs the full analysis pipeline over merged extractor
// output.
func AnalyzeActivity(ctx context.Context, frag extract.Fragment) (AnalysisResult, error) {
	result, err := analyzer.Run(ctx, analyzer.Input{
		Edges:      frag.Edges,
		TypeCounts: frag.TypeCounts,
	})
	if err != nil {
		return AnalysisResult{}, err
	}

	data, err := result.JSON()
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("marshal result: %w", err)
	}

	return AnalysisResult{
		ResultJSON:      string(data),
		ModuleCount:     result.Graph.ModuleCount(),
		DependencyCount: result.Graph.DependencyCount(),
		CycleCount:      len(result.Cycles),
		ViolationCount:  len(result.Violations),
	}, nil
}

// SnapshotActivity persists a completed run to the snapshot store and returns
// the snapshot ID.
func SnapshotActivity(ctx context.Context, project string, frag extract.Fragment, resultJSON string) (string, error) {
	if deps.Store == nil {
		return "", fmt.Errorf("snapshot store not configured")
	}

	var result analyzer.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return "", fmt.Errorf("unmarshal result: %w", err)
	}

	snap, err := snapshot.NewSnapshot(project, analyzer.Input{
		Edges:      frag.Edges,
		TypeCounts: frag.TypeCounts,
	}, &result)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := deps.Store.Save(snap, &result); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return snap.ID, nil
}

// StoreGraphActivity persists the analyzed graph to the graph database.
func StoreGraphActivity(ctx context.Context, project, resultJSON string) error {
	if deps.Repo == nil {
		return fmt.Errorf("graph store not configured")
	}

	var result analyzer.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return deps.Repo.StoreRun(ctx, project, result.Graph, result.Metrics)
}
