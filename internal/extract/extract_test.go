package extract

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tkaracan/caliper/internal/graph"
)

// fakeExtractor returns a canned fragment per source name.
type fakeExtractor struct {
	fragments map[string]Fragment
	err       error
	delay     time.Duration
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(ctx context.Context, source Source) (Fragment, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Fragment{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Fragment{}, f.err
	}
	return f.fragments[source.Name], nil
}

func TestMerge(t *testing.T) {
	a := Fragment{
		Edges:      []graph.RawEdge{{From: "a", To: "b"}},
		TypeCounts: []graph.TypeCount{{Module: "a", TotalTypes: 1}},
	}
	b := Fragment{
		Edges: []graph.RawEdge{{From: "b", To: "c"}},
	}

	merged := Merge(a, b)
	if len(merged.Edges) != 2 {
		t.Errorf("expected 2 edges, got %d", len(merged.Edges))
	}
	if len(merged.TypeCounts) != 1 {
		t.Errorf("expected 1 type count, got %d", len(merged.TypeCounts))
	}
}

func TestMerge_OrderDoesNotAffectAnalysis(t *testing.T) {
	a := Fragment{
		Edges:      []graph.RawEdge{{From: "a", To: "b"}, {From: "b", To: "a"}},
		TypeCounts: []graph.TypeCount{{Module: "a", TotalTypes: 4, AbstractTypes: 1}},
	}
	b := Fragment{
		Edges:      []graph.RawEdge{{From: "a", To: "b"}}, // duplicate across fragments
		TypeCounts: []graph.TypeCount{{Module: "a", TotalTypes: 6, AbstractTypes: 2}},
	}

	ab := Merge(a, b)
	ba := Merge(b, a)

	gAB, err := graph.Build(ab.Edges, ab.TypeCounts)
	if err != nil {
		t.Fatal(err)
	}
	gBA, err := graph.Build(ba.Edges, ba.TypeCounts)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(gAB.Modules, gBA.Modules) {
		t.Errorf("merge order changed modules: %v vs %v", gAB.Modules, gBA.Modules)
	}
	if !reflect.DeepEqual(gAB.Dependencies, gBA.Dependencies) {
		t.Errorf("merge order changed dependencies")
	}
	m, _ := gAB.Module("a")
	if m.TotalTypes != 10 || m.AbstractTypes != 3 {
		t.Errorf("expected counts summed across fragments, got %d/%d", m.TotalTypes, m.AbstractTypes)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	fake := &fakeExtractor{}
	r.Register(fake)

	got, err := r.Get("fake")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != fake {
		t.Error("expected registered extractor back")
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown extractor")
	}
}

func TestCollect_MergesInInputOrder(t *testing.T) {
	e := &fakeExtractor{fragments: map[string]Fragment{
		"one": {Edges: []graph.RawEdge{{From: "a", To: "b"}}},
		"two": {Edges: []graph.RawEdge{{From: "c", To: "d"}}},
	}}

	frag, err := Collect(context.Background(), e, []Source{
		{Name: "one"}, {Name: "two"},
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want := []graph.RawEdge{{From: "a", To: "b"}, {From: "c", To: "d"}}
	if !reflect.DeepEqual(frag.Edges, want) {
		t.Errorf("expected edges in source order, got %v", frag.Edges)
	}
}

func TestCollect_AnyErrorFailsAll(t *testing.T) {
	e := &fakeExtractor{err: errors.New("bad source")}

	_, err := Collect(context.Background(), e, []Source{{Name: "x"}, {Name: "y"}})
	if err == nil {
		t.Fatal("expected error when a source fails")
	}
}

func TestCollect_NoSources(t *testing.T) {
	frag, err := Collect(context.Background(), &fakeExtractor{}, nil)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(frag.Edges) != 0 || len(frag.TypeCounts) != 0 {
		t.Error("expected empty fragment for no sources")
	}
}
