package graph

import "fmt"

// RawEdge is one dependency pair as emitted by an extractor. Identifiers are
// opaque: the builder compares them by exact string equality and performs no
// normalization.
type RawEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TypeCount reports how many types a module declares and how many of those
// are abstract. Multiple records for the same module accumulate, so extractor
// fragments produced per file can be merged by plain concatenation.
type TypeCount struct {
	Module        string `json:"module"`
	TotalTypes    int    `json:"total_types"`
	AbstractTypes int    `json:"abstract_types"`
}

// DataIntegrityError is returned when a type-count record is internally
// inconsistent. The whole build fails; no partial graph is produced.
type DataIntegrityError struct {
	Module        string
	TotalTypes    int
	AbstractTypes int
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("module %q: abstract type count %d exceeds total type count %d",
		e.Module, e.AbstractTypes, e.TotalTypes)
}

// Build validates and deduplicates raw extractor output into a
// DependencyGraph.
//
// Every identifier seen in an edge or type-count record becomes a module.
// Duplicate (from,to) pairs collapse to one Dependency, edges with
// from == to are recorded as self-loops, and type counts default to 0/0 for
// modules with no record. A record with abstract > total or a negative count
// aborts the build with a *DataIntegrityError.
func Build(edges []RawEdge, counts []TypeCount) (*DependencyGraph, error) {
	type moduleData struct {
		total    int
		abstract int
	}
	mods := make(map[string]*moduleData)
	ensure := func(name string) *moduleData {
		m, ok := mods[name]
		if !ok {
			m = &moduleData{}
			mods[name] = m
		}
		return m
	}

	for _, c := range counts {
		if c.AbstractTypes > c.TotalTypes || c.TotalTypes < 0 || c.AbstractTypes < 0 {
			return nil, &DataIntegrityError{
				Module:        c.Module,
				TotalTypes:    c.TotalTypes,
				AbstractTypes: c.AbstractTypes,
			}
		}
		m := ensure(c.Module)
		m.total += c.TotalTypes
		m.abstract += c.AbstractTypes
	}

	seen := make(map[RawEdge]bool)
	loops := make(map[string]bool)
	var deps []Dependency
	for _, e := range edges {
		ensure(e.From)
		ensure(e.To)
		if e.From == e.To {
			loops[e.From] = true
			continue
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		deps = append(deps, Dependency{From: e.From, To: e.To})
	}

	modules := make([]Module, 0, len(mods))
	for name, m := range mods {
		modules = append(modules, Module{
			Name:          name,
			TotalTypes:    m.total,
			AbstractTypes: m.abstract,
		})
	}
	selfLoops := make([]string, 0, len(loops))
	for name := range loops {
		selfLoops = append(selfLoops, name)
	}

	return New(modules, deps, selfLoops), nil
}
