// Package sdp applies the Stable Dependencies Principle to a dependency
// graph: every dependency should point toward a module that is at least as
// stable as the depender.
package sdp

import (
	"sort"

	"github.com/tkaracan/caliper/internal/coupling"
	"github.com/tkaracan/caliper/internal/graph"
)

// Violation is one dependency that breaches the principle: the depender's
// instability is strictly lower than the dependee's, so a stable module
// rests on a volatile one. DeltaI is always positive.
type Violation struct {
	Depender string  `json:"depender"`
	Dependee string  `json:"dependee"`
	DeltaI   float64 `json:"delta_i"`
}

// Analyze checks every dependency whose endpoints both have a defined
// instability and returns the violations ranked by descending DeltaI (ties
// broken by depender, then dependee, so output is byte-stable). Edges
// touching a module with undefined instability are skipped: a verdict needs
// a measurable instability on both ends.
func Analyze(g *graph.DependencyGraph, metrics map[string]coupling.ModuleMetrics) []Violation {
	var out []Violation
	for _, d := range g.Dependencies {
		from, okFrom := metrics[d.From]
		to, okTo := metrics[d.To]
		if !okFrom || !okTo {
			continue
		}
		if !from.Instability.Defined || !to.Instability.Defined {
			continue
		}
		if from.Instability.Value < to.Instability.Value {
			out = append(out, Violation{
				Depender: d.From,
				Dependee: d.To,
				DeltaI:   to.Instability.Value - from.Instability.Value,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DeltaI != out[j].DeltaI {
			return out[i].DeltaI > out[j].DeltaI
		}
		if out[i].Depender != out[j].Depender {
			return out[i].Depender < out[j].Depender
		}
		return out[i].Dependee < out[j].Dependee
	})
	return out
}

// AboveThreshold filters violations to those with DeltaI strictly above the
// given cutoff. The analyzer itself reports everything; thresholding is a
// caller concern.
func AboveThreshold(violations []Violation, threshold float64) []Violation {
	var out []Violation
	for _, v := range violations {
		if v.DeltaI > threshold {
			out = append(out, v)
		}
	}
	return out
}
