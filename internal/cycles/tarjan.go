// Package cycles finds circular dependencies in a dependency graph using
// Tarjan's strongly-connected-components algorithm.
package cycles

import (
	"sort"

	"github.com/tkaracan/caliper/internal/graph"
)

// Cycle is one circular dependency: the sorted members of a strongly
// connected component with at least two modules, or a single self-loop.
// Path is one concrete closed walk through the cycle, starting and ending at
// the lexicographically smallest member, kept for reporting.
type Cycle struct {
	Members []string `json:"members"`
	Path    []string `json:"path"`
}

// Detect returns every cycle in the graph: all SCCs of size two or more,
// plus a singleton cycle for each recorded self-loop. The result is sorted
// by each cycle's smallest member (self-loops before a larger cycle sharing
// the same smallest member), so identical input always yields identical
// output.
//
// The SCC pass is iterative with an explicit frame stack; deep dependency
// chains in large codebases must not overflow the goroutine stack.
func Detect(g *graph.DependencyGraph) []Cycle {
	var out []Cycle

	for _, scc := range stronglyConnected(g) {
		if len(scc) < 2 {
			continue
		}
		sort.Strings(scc)
		out = append(out, Cycle{
			Members: scc,
			Path:    cyclePath(g, scc),
		})
	}

	for _, name := range g.SelfLoops {
		out = append(out, Cycle{
			Members: []string{name},
			Path:    []string{name, name},
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Members[0] != out[j].Members[0] {
			return out[i].Members[0] < out[j].Members[0]
		}
		return len(out[i].Members) < len(out[j].Members)
	})
	return out
}

// frame is one suspended visit in the iterative DFS.
type frame struct {
	node string
	next int // index of the next successor to visit
}

// stronglyConnected runs Tarjan's algorithm over the inter-module
// dependencies and returns all SCCs. Self-loops are not part of the
// dependency set and do not influence the components.
func stronglyConnected(g *graph.DependencyGraph) [][]string {
	index := make(map[string]int, g.ModuleCount())
	low := make(map[string]int, g.ModuleCount())
	onStack := make(map[string]bool, g.ModuleCount())
	var stack []string
	counter := 0

	var sccs [][]string

	visit := func(root string) {
		frames := []frame{{node: root}}
		index[root] = counter
		low[root] = counter
		counter++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			succs := g.DependenciesOf(f.node)

			if f.next < len(succs) {
				w := succs[f.next]
				f.next++
				if _, seen := index[w]; !seen {
					index[w] = counter
					low[w] = counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{node: w})
				} else if onStack[w] && index[w] < low[f.node] {
					low[f.node] = index[w]
				}
				continue
			}

			// All successors visited: close out this node.
			v := f.node
			if low[v] == index[v] {
				var scc []string
				for {
					n := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[n] = false
					scc = append(scc, n)
					if n == v {
						break
					}
				}
				sccs = append(sccs, scc)
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if low[v] < low[parent.node] {
					low[parent.node] = low[v]
				}
			}
		}
	}

	for _, m := range g.Modules {
		if _, seen := index[m.Name]; !seen {
			visit(m.Name)
		}
	}
	return sccs
}

// cyclePath finds one closed walk from the smallest member of an SCC back to
// itself, staying inside the component. BFS over the sorted adjacency lists
// keeps the chosen path deterministic.
func cyclePath(g *graph.DependencyGraph, members []string) []string {
	inSCC := make(map[string]bool, len(members))
	for _, m := range members {
		inSCC[m] = true
	}
	start := members[0]

	parent := make(map[string]string, len(members))
	queue := []string{start}
	visited := map[string]bool{start: true}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.DependenciesOf(v) {
			if !inSCC[w] {
				continue
			}
			if w == start {
				// Closed the walk: reconstruct start -> ... -> v -> start.
				path := []string{start}
				var rev []string
				for n := v; n != start; n = parent[n] {
					rev = append(rev, n)
				}
				for i := len(rev) - 1; i >= 0; i-- {
					path = append(path, rev[i])
				}
				return append(path, start)
			}
			if !visited[w] {
				visited[w] = true
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	// Unreachable for a true SCC; keep the members as a degenerate path.
	return members
}
