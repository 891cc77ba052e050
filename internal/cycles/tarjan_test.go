package cycles

import (
	"reflect"
	"testing"

	"github.com/tkaracan/caliper/internal/graph"
)

func build(t *testing.T, edges ...graph.RawEdge) *graph.DependencyGraph {
	t.Helper()
	g, err := graph.Build(edges, nil)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestDetect_DiamondHasNoCycle(t *testing.T) {
	g := build(t,
		graph.RawEdge{From: "A", To: "B"},
		graph.RawEdge{From: "A", To: "C"},
		graph.RawEdge{From: "B", To: "D"},
		graph.RawEdge{From: "C", To: "D"},
	)

	if got := Detect(g); len(got) != 0 {
		t.Errorf("expected no cycles in a diamond, got %v", got)
	}
}

func TestDetect_MutualCycle(t *testing.T) {
	g := build(t,
		graph.RawEdge{From: "X", To: "Y"},
		graph.RawEdge{From: "Y", To: "X"},
	)

	got := Detect(g)
	if len(got) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].Members, []string{"X", "Y"}) {
		t.Errorf("expected members [X Y], got %v", got[0].Members)
	}
	if !reflect.DeepEqual(got[0].Path, []string{"X", "Y", "X"}) {
		t.Errorf("expected path X Y X, got %v", got[0].Path)
	}
}

func TestDetect_ThreeCycle(t *testing.T) {
	g := build(t,
		graph.RawEdge{From: "b", To: "c"},
		graph.RawEdge{From: "c", To: "a"},
		graph.RawEdge{From: "a", To: "b"},
	)

	got := Detect(g)
	if len(got) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].Members, []string{"a", "b", "c"}) {
		t.Errorf("expected members [a b c], got %v", got[0].Members)
	}
	if got[0].Path[0] != "a" || got[0].Path[len(got[0].Path)-1] != "a" {
		t.Errorf("path must start and end at smallest member, got %v", got[0].Path)
	}
	if len(got[0].Path) != 4 {
		t.Errorf("expected closed walk of 4 nodes, got %v", got[0].Path)
	}
}

func TestDetect_SelfLoopIsSingletonCycle(t *testing.T) {
	g := build(t,
		graph.RawEdge{From: "m", To: "m"},
		graph.RawEdge{From: "m", To: "n"},
	)

	got := Detect(g)
	if len(got) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].Members, []string{"m"}) {
		t.Errorf("expected singleton [m], got %v", got[0].Members)
	}
	if !reflect.DeepEqual(got[0].Path, []string{"m", "m"}) {
		t.Errorf("expected path m m, got %v", got[0].Path)
	}
}

func TestDetect_MultipleCyclesSorted(t *testing.T) {
	g := build(t,
		// Cycle {c, d}.
		graph.RawEdge{From: "c", To: "d"},
		graph.RawEdge{From: "d", To: "c"},
		// Cycle {a, b}.
		graph.RawEdge{From: "a", To: "b"},
		graph.RawEdge{From: "b", To: "a"},
		// Self-loop on e.
		graph.RawEdge{From: "e", To: "e"},
	)

	got := Detect(g)
	if len(got) != 3 {
		t.Fatalf("expected 3 cycles, got %d", len(got))
	}
	if got[0].Members[0] != "a" || got[1].Members[0] != "c" || got[2].Members[0] != "e" {
		t.Errorf("cycles not sorted by smallest member: %v", got)
	}
}

func TestDetect_SelfLoopInsideLargerCycle(t *testing.T) {
	// a participates in both a self-loop and a two-module cycle; both are
	// reported, the singleton first.
	g := build(t,
		graph.RawEdge{From: "a", To: "a"},
		graph.RawEdge{From: "a", To: "b"},
		graph.RawEdge{From: "b", To: "a"},
	)

	got := Detect(g)
	if len(got) != 2 {
		t.Fatalf("expected 2 cycles, got %d: %v", len(got), got)
	}
	if len(got[0].Members) != 1 || got[0].Members[0] != "a" {
		t.Errorf("expected singleton cycle first, got %v", got[0])
	}
	if !reflect.DeepEqual(got[1].Members, []string{"a", "b"}) {
		t.Errorf("expected cycle [a b] second, got %v", got[1])
	}
}

func TestDetect_LongChainNoOverflow(t *testing.T) {
	// A deep chain closed into one huge cycle; the iterative DFS must handle
	// it without recursion.
	const n = 20000
	edges := make([]graph.RawEdge, 0, n)
	name := func(i int) string {
		// Fixed-width names keep lexicographic order aligned with the chain.
		return string(rune('a')) + pad(i)
	}
	for i := 0; i < n-1; i++ {
		edges = append(edges, graph.RawEdge{From: name(i), To: name(i + 1)})
	}
	edges = append(edges, graph.RawEdge{From: name(n - 1), To: name(0)})

	g := build(t, edges...)
	got := Detect(g)
	if len(got) != 1 {
		t.Fatalf("expected one giant cycle, got %d", len(got))
	}
	if len(got[0].Members) != n {
		t.Errorf("expected %d members, got %d", n, len(got[0].Members))
	}
}

func pad(i int) string {
	const digits = 8
	buf := [digits]byte{}
	for p := digits - 1; p >= 0; p-- {
		buf[p] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[:])
}

func TestDetect_Deterministic(t *testing.T) {
	edges := []graph.RawEdge{
		{From: "x", To: "y"},
		{From: "y", To: "z"},
		{From: "z", To: "x"},
		{From: "p", To: "q"},
		{From: "q", To: "p"},
	}
	g1 := build(t, edges...)

	reversed := make([]graph.RawEdge, len(edges))
	for i, e := range edges {
		reversed[len(edges)-1-i] = e
	}
	g2 := build(t, reversed...)

	if !reflect.DeepEqual(Detect(g1), Detect(g2)) {
		t.Error("cycle detection depends on input order")
	}
}
