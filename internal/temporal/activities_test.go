package temporal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tkaracan/caliper/internal/analyzer"
	"github.com/tkaracan/caliper/internal/extract"
	"github.com/tkaracan/caliper/internal/extract/edgelist"
	"github.com/tkaracan/caliper/internal/graph"
	"github.com/tkaracan/caliper/internal/snapshot"
)

func setupTestRegistry() *extract.Registry {
	reg := extract.NewRegistry()
	reg.Register(edgelist.New())
	return reg
}

func setupTestDeps(t *testing.T) *Dependencies {
	t.Helper()
	store, err := snapshot.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	d := &Dependencies{
		Registry: setupTestRegistry(),
		Store:    store,
	}
	SetDependencies(d)
	return d
}

func TestSetDependencies(t *testing.T) {
	reg := setupTestRegistry()
	SetDependencies(&Dependencies{Registry: reg})

	if deps == nil {
		t.Fatal("SetDependencies failed: deps is nil")
	}
	if deps.Registry != reg {
		t.Error("SetDependencies did not set registry correctly")
	}
}

func TestExtractActivity_Edgelist(t *testing.T) {
	setupTestDeps(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "deps.jsonl")
	content := []byte(`{"from":"app","to":"core"}
{"from":"core","to":"util"}
{"module":"core","total_types":4,"abstract_types":1}
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	frag, err := ExtractActivity(context.Background(), "edgelist", extract.Source{Name: "deps", Path: path})
	if err != nil {
		t.Fatalf("ExtractActivity failed: %v", err)
	}

	if len(frag.Edges) != 2 {
		t.Errorf("expected 2 edges, got %d", len(frag.Edges))
	}
	if len(frag.TypeCounts) != 1 {
		t.Errorf("expected 1 type count, got %d", len(frag.TypeCounts))
	}
}

func TestExtractActivity_UnknownExtractor(t *testing.T) {
	setupTestDeps(t)

	_, err := ExtractActivity(context.Background(), "nonexistent", extract.Source{Name: "x", Path: "/dev/null"})
	if err == nil {
		t.Fatal("expected error for unregistered extractor")
	}
}

func TestAnalyzeActivity(t *testing.T) {
	setupTestDeps(t)

	frag := extract.Fragment{
		Edges: []graph.RawEdge{
			{From: "app", To: "core"},
			{From: "core", To: "app"},
			{From: "core", To: "util"},
		},
	}

	result, err := AnalyzeActivity(context.Background(), frag)
	if err != nil {
		t.Fatalf("AnalyzeActivity failed: %v", err)
	}

	if result.ModuleCount != 3 {
		t.Errorf("expected 3 modules, got %d", result.ModuleCount)
	}
	if result.CycleCount != 1 {
		t.Errorf("expected 1 cycle, got %d", result.CycleCount)
	}
	if result.ResultJSON == "" {
		t.Fatal("expected non-empty ResultJSON")
	}

	var parsed analyzer.Result
	if err := json.Unmarshal([]byte(result.ResultJSON), &parsed); err != nil {
		t.Fatalf("ResultJSON is not valid: %v", err)
	}
}

func TestAnalyzeActivity_IntegrityError(t *testing.T) {
	setupTestDeps(t)

	frag := extract.Fragment{
		Edges: []graph.RawEdge{{From: "a", To: "b"}},
		TypeCounts: []graph.TypeCount{
			{Module: "a", TotalTypes: 1, AbstractTypes: 3},
		},
	}

	_, err := AnalyzeActivity(context.Background(), frag)
	if err == nil {
		t.Fatal("expected error for inconsistent type counts")
	}
}

func TestSnapshotActivity(t *testing.T) {
	d := setupTestDeps(t)

	frag := extract.Fragment{
		Edges: []graph.RawEdge{{From: "a", To: "b"}},
	}
	analysis, err := AnalyzeActivity(context.Background(), frag)
	if err != nil {
		t.Fatal(err)
	}

	id, err := SnapshotActivity(context.Background(), "test", frag, analysis.ResultJSON)
	if err != nil {
		t.Fatalf("SnapshotActivity failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty snapshot ID")
	}

	snap, err := d.Store.Load(id)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap.ModuleCount != 2 {
		t.Errorf("expected 2 modules in snapshot, got %d", snap.ModuleCount)
	}
}

func TestSnapshotActivity_NoStore(t *testing.T) {
	SetDependencies(&Dependencies{Registry: setupTestRegistry()})

	_, err := SnapshotActivity(context.Background(), "test", extract.Fragment{}, "{}")
	if err == nil {
		t.Fatal("expected error without snapshot store")
	}
}

func TestStoreGraphActivity_NoRepo(t *testing.T) {
	setupTestDeps(t)

	err := StoreGraphActivity(context.Background(), "test", "{}")
	if err == nil {
		t.Fatal("expected error without graph store")
	}
}
