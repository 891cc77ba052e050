package sdp

import (
	"math"
	"testing"

	"github.com/tkaracan/caliper/internal/coupling"
	"github.com/tkaracan/caliper/internal/graph"
)

func analyze(t *testing.T, edges ...graph.RawEdge) []Violation {
	t.Helper()
	g, err := graph.Build(edges, nil)
	if err != nil {
		t.Fatal(err)
	}
	return Analyze(g, coupling.Compute(g))
}

func TestAnalyze_StableOnVolatile(t *testing.T) {
	// P: Ca=4, Ce=1 -> I=0.2. Q: Ca=1, Ce=9 -> I=0.9. P -> Q violates.
	edges := []graph.RawEdge{{From: "P", To: "Q"}}
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		edges = append(edges, graph.RawEdge{From: u, To: "P"})
	}
	for i := 0; i < 9; i++ {
		edges = append(edges, graph.RawEdge{From: "Q", To: "dep" + string(rune('a'+i))})
	}

	violations := analyze(t, edges...)

	var found *Violation
	for i := range violations {
		if violations[i].Depender == "P" && violations[i].Dependee == "Q" {
			found = &violations[i]
		}
	}
	if found == nil {
		t.Fatalf("expected violation P -> Q, got %v", violations)
	}
	if math.Abs(found.DeltaI-0.7) > 1e-9 {
		t.Errorf("expected deltaI=0.7, got %v", found.DeltaI)
	}
}

func TestAnalyze_EqualInstabilityIsNotViolation(t *testing.T) {
	// X and Y both have I=0.5; neither direction violates.
	violations := analyze(t,
		graph.RawEdge{From: "X", To: "Y"},
		graph.RawEdge{From: "Y", To: "X"},
	)
	if len(violations) != 0 {
		t.Errorf("expected no violations for equal instability, got %v", violations)
	}
}

func TestAnalyze_DownhillDependencyIsFine(t *testing.T) {
	// a -> b -> c: every depender is less stable than its dependee.
	violations := analyze(t,
		graph.RawEdge{From: "a", To: "b"},
		graph.RawEdge{From: "b", To: "c"},
	)
	if len(violations) != 0 {
		t.Errorf("expected no violations in a layered chain, got %v", violations)
	}
}

func TestAnalyze_SkipsUndefinedInstability(t *testing.T) {
	g, err := graph.Build([]graph.RawEdge{{From: "a", To: "b"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Force an undefined endpoint: replace b's metrics.
	metrics := coupling.Compute(g)
	b := metrics["b"]
	b.Instability = coupling.Undefined()
	metrics["b"] = b

	if got := Analyze(g, metrics); len(got) != 0 {
		t.Errorf("expected undefined endpoints to be skipped, got %v", got)
	}
}

func TestAnalyze_SortedByDeltaDescending(t *testing.T) {
	// core: Ca=3, Ce=2 -> I=0.4. mid: Ca=1, Ce=2 -> I=2/3. free: Ca=1,
	// Ce=1 -> I=0.5. Both core -> mid (delta 0.267) and core -> free
	// (delta 0.1) violate; the larger delta must come first.
	violations := analyze(t,
		graph.RawEdge{From: "u1", To: "core"},
		graph.RawEdge{From: "u2", To: "core"},
		graph.RawEdge{From: "u3", To: "core"},
		graph.RawEdge{From: "core", To: "mid"},
		graph.RawEdge{From: "core", To: "free"},
		graph.RawEdge{From: "mid", To: "leafA"},
		graph.RawEdge{From: "mid", To: "leafB"},
		graph.RawEdge{From: "free", To: "out"},
	)

	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %v", violations)
	}
	if violations[0].Dependee != "mid" || violations[1].Dependee != "free" {
		t.Errorf("violations not sorted by descending deltaI: %v", violations)
	}
}

func TestAnalyze_DeltaAlwaysPositive(t *testing.T) {
	violations := analyze(t,
		graph.RawEdge{From: "a", To: "b"},
		graph.RawEdge{From: "c", To: "a"},
		graph.RawEdge{From: "b", To: "d"},
		graph.RawEdge{From: "d", To: "b"},
	)
	for _, v := range violations {
		if v.DeltaI <= 0 {
			t.Errorf("deltaI must be positive, got %v", v)
		}
	}
}

func TestAboveThreshold(t *testing.T) {
	violations := []Violation{
		{Depender: "a", Dependee: "b", DeltaI: 0.9},
		{Depender: "c", Dependee: "d", DeltaI: 0.3},
		{Depender: "e", Dependee: "f", DeltaI: 0.3},
	}

	got := AboveThreshold(violations, 0.3)
	if len(got) != 1 || got[0].Depender != "a" {
		t.Errorf("threshold must be strict, got %v", got)
	}

	if got := AboveThreshold(violations, 0); len(got) != 3 {
		t.Errorf("zero threshold keeps everything, got %v", got)
	}
}
