// Package coupling computes Robert C. Martin's package coupling metrics
// (afferent/efferent coupling, instability, abstractness, distance from the
// main sequence) over a dependency graph.
package coupling

import (
	"fmt"

	"github.com/tkaracan/caliper/internal/graph"
)

// Metric is a ratio in [0,1] that may be undefined. Undefined is a
// first-class outcome: an isolated module has no instability at all, which
// is not the same thing as instability zero. The zero value is undefined.
type Metric struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// Defined returns a defined metric with the given value.
func Defined(v float64) Metric { return Metric{Value: v, Defined: true} }

// Undefined returns the undefined sentinel.
func Undefined() Metric { return Metric{} }

func (m Metric) String() string {
	if !m.Defined {
		return "undefined"
	}
	return fmt.Sprintf("%.3f", m.Value)
}

// Zone classifies where a module sits relative to the main sequence.
type Zone string

const (
	// ZoneNone marks modules in neither exclusion zone, including any module
	// with an undefined instability or abstractness.
	ZoneNone Zone = "none"
	// ZonePain marks rigid concrete modules: I < 0.2 and A < 0.2.
	ZonePain Zone = "pain"
	// ZoneUseless marks abstractions nobody depends on: I > 0.8 and A > 0.8.
	ZoneUseless Zone = "useless"
)

const (
	painThreshold    = 0.2
	uselessThreshold = 0.8
)

// ModuleMetrics holds the computed coupling metrics for one module.
type ModuleMetrics struct {
	Module       string `json:"module"`
	Ca           int    `json:"ca"`
	Ce           int    `json:"ce"`
	Instability  Metric `json:"instability"`
	Abstractness Metric `json:"abstractness"`
	Distance     Metric `json:"distance"`
	Zone         Zone   `json:"zone"`
}

// Compute derives metrics for every module in the graph. The result maps
// module name to its metrics; self-loops never contribute to Ca or Ce.
func Compute(g *graph.DependencyGraph) map[string]ModuleMetrics {
	out := make(map[string]ModuleMetrics, g.ModuleCount())
	for _, m := range g.Modules {
		out[m.Name] = computeModule(g, m)
	}
	return out
}

func computeModule(g *graph.DependencyGraph, m graph.Module) ModuleMetrics {
	mm := ModuleMetrics{
		Module: m.Name,
		Ca:     len(g.Dependents(m.Name)),
		Ce:     len(g.DependenciesOf(m.Name)),
		Zone:   ZoneNone,
	}

	if mm.Ca+mm.Ce > 0 {
		mm.Instability = Defined(float64(mm.Ce) / float64(mm.Ca+mm.Ce))
	}
	if m.TotalTypes > 0 {
		mm.Abstractness = Defined(float64(m.AbstractTypes) / float64(m.TotalTypes))
	}
	if mm.Instability.Defined && mm.Abstractness.Defined {
		d := mm.Abstractness.Value + mm.Instability.Value - 1
		if d < 0 {
			d = -d
		}
		mm.Distance = Defined(d)
		mm.Zone = classify(mm.Instability.Value, mm.Abstractness.Value)
	}
	return mm
}

func classify(instability, abstractness float64) Zone {
	switch {
	case instability < painThreshold && abstractness < painThreshold:
		return ZonePain
	case instability > uselessThreshold && abstractness > uselessThreshold:
		return ZoneUseless
	default:
		return ZoneNone
	}
}
