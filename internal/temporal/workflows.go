package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/tkaracan/caliper/internal/extract"
)

// AnalysisInput holds the workflow parameters.
type AnalysisInput struct {
	Project   string
	Extractor string // extractor plugin name, defaults to "edgelist"
	Sources   []extract.Source
	Save      bool // persist the run as a snapshot
	Store     bool // persist the graph to the graph database
}

// AnalysisOutput holds the workflow result.
type AnalysisOutput struct {
	SnapshotID      string
	ModuleCount     int
	DependencyCount int
	CycleCount      int
	ViolationCount  int
	ResultJSON      string
}

// AnalysisWorkflow extracts every source in parallel, merges the fragments
// and runs one analysis over the combined input. Extraction is fan-out:
// one activity per source, results merged in input order so the outcome is
// independent of activity completion order.
func AnalysisWorkflow(ctx workflow.Context, input AnalysisInput) (*AnalysisOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	extractor := input.Extractor
	if extractor == "" {
		extractor = "edgelist"
	}

	futures := make([]workflow.Future, len(input.Sources))
	for i, src := range input.Sources {
		futures[i] = workflow.ExecuteActivity(ctx, ExtractActivity, extractor, src)
	}

	fragments := make([]extract.Fragment, len(input.Sources))
	for i, f := range futures {
		if err := f.Get(ctx, &fragments[i]); err != nil {
			return nil, fmt.Errorf("extract %s: %w", input.Sources[i].Name, err)
		}
	}

	var analysis AnalysisResult
	if err := workflow.ExecuteActivity(ctx, AnalyzeActivity, extract.Merge(fragments...)).Get(ctx, &analysis); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	output := &AnalysisOutput{
		ModuleCount:     analysis.ModuleCount,
		DependencyCount: analysis.DependencyCount,
		CycleCount:      analysis.CycleCount,
		ViolationCount:  analysis.ViolationCount,
		ResultJSON:      analysis.ResultJSON,
	}

	if input.Save {
		var snapshotID string
		if err := workflow.ExecuteActivity(ctx, SnapshotActivity, input.Project, extract.Merge(fragments...), analysis.ResultJSON).Get(ctx, &snapshotID); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		output.SnapshotID = snapshotID
	}

	if input.Store {
		if err := workflow.ExecuteActivity(ctx, StoreGraphActivity, input.Project, analysis.ResultJSON).Get(ctx, nil); err != nil {
			return nil, fmt.Errorf("store graph: %w", err)
		}
	}

	return output, nil
}
