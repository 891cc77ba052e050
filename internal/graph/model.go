// Package graph defines the dependency graph model and the builder that
// turns raw extractor output into a validated, immutable graph.
package graph

import (
	"encoding/json"
	"sort"
)

// Module is a single unit of the analyzed system (a package, assembly,
// namespace, whatever the extractor treats as a module). Type counts feed
// the abstractness metric; a module that never appeared in a type-count
// record keeps 0/0, which downstream code must treat as "abstractness
// undefined", not zero.
type Module struct {
	Name          string `json:"name"`
	TotalTypes    int    `json:"total_types"`
	AbstractTypes int    `json:"abstract_types"`
}

// Dependency is a single logical module-to-module edge. From and To always
// name distinct modules present in the graph; self-references are recorded
// as self-loops instead.
type Dependency struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DependencyGraph is the immutable output of the builder: the module set,
// the distinct inter-module dependencies, and the modules that referenced
// themselves. All slices are sorted so identical input always serializes to
// identical bytes.
type DependencyGraph struct {
	Modules      []Module     `json:"modules"`
	Dependencies []Dependency `json:"dependencies"`
	SelfLoops    []string     `json:"self_loops,omitempty"`

	byName map[string]int
	out    map[string][]string
	in     map[string][]string
	loops  map[string]bool
}

// New assembles a graph from already-deduplicated parts and builds the
// adjacency indexes. Callers normally go through Build; New exists for code
// that reconstructs a graph from storage.
func New(modules []Module, deps []Dependency, selfLoops []string) *DependencyGraph {
	g := &DependencyGraph{
		Modules:      modules,
		Dependencies: deps,
		SelfLoops:    selfLoops,
	}
	g.reindex()
	return g
}

func (g *DependencyGraph) reindex() {
	sort.Slice(g.Modules, func(i, j int) bool { return g.Modules[i].Name < g.Modules[j].Name })
	sort.Slice(g.Dependencies, func(i, j int) bool {
		if g.Dependencies[i].From != g.Dependencies[j].From {
			return g.Dependencies[i].From < g.Dependencies[j].From
		}
		return g.Dependencies[i].To < g.Dependencies[j].To
	})
	sort.Strings(g.SelfLoops)

	g.byName = make(map[string]int, len(g.Modules))
	for i, m := range g.Modules {
		g.byName[m.Name] = i
	}
	g.out = make(map[string][]string)
	g.in = make(map[string][]string)
	for _, d := range g.Dependencies {
		g.out[d.From] = append(g.out[d.From], d.To)
		g.in[d.To] = append(g.in[d.To], d.From)
	}
	g.loops = make(map[string]bool, len(g.SelfLoops))
	for _, name := range g.SelfLoops {
		g.loops[name] = true
	}
}

// UnmarshalJSON restores a graph from its serialized form and rebuilds the
// adjacency indexes, so a loaded graph behaves like a freshly built one.
func (g *DependencyGraph) UnmarshalJSON(data []byte) error {
	type plain DependencyGraph
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	g.Modules = p.Modules
	g.Dependencies = p.Dependencies
	g.SelfLoops = p.SelfLoops
	g.reindex()
	return nil
}

// Module looks up a module by name.
func (g *DependencyGraph) Module(name string) (Module, bool) {
	i, ok := g.byName[name]
	if !ok {
		return Module{}, false
	}
	return g.Modules[i], true
}

// DependenciesOf returns the modules that name depends on, sorted.
func (g *DependencyGraph) DependenciesOf(name string) []string {
	return g.out[name]
}

// Dependents returns the modules that depend on name, sorted.
func (g *DependencyGraph) Dependents(name string) []string {
	return g.in[name]
}

// HasSelfLoop reports whether the module referenced itself in the input.
func (g *DependencyGraph) HasSelfLoop(name string) bool {
	return g.loops[name]
}

// ModuleCount returns the number of modules in the graph.
func (g *DependencyGraph) ModuleCount() int { return len(g.Modules) }

// DependencyCount returns the number of distinct inter-module dependencies.
func (g *DependencyGraph) DependencyCount() int { return len(g.Dependencies) }
