// Package predict compares user-supplied metric predictions against computed
// results. It backs the "predict, then compare" coaching workflow and lives
// entirely outside the analysis core: the core computes, this package diffs.
package predict

import (
	"fmt"
	"sort"

	"github.com/tkaracan/caliper/internal/coupling"
)

// DefaultTolerance is how far a numeric prediction may miss and still count
// as a match.
const DefaultTolerance = 0.05

// Prediction is one module's guessed metrics. Nil fields were not predicted
// and are not compared.
type Prediction struct {
	Module       string   `json:"module"`
	Ca           *int     `json:"ca,omitempty"`
	Ce           *int     `json:"ce,omitempty"`
	Instability  *float64 `json:"instability,omitempty"`
	Abstractness *float64 `json:"abstractness,omitempty"`
	Distance     *float64 `json:"distance,omitempty"`
}

// FieldDiff is the outcome of comparing one predicted field.
type FieldDiff struct {
	Module    string  `json:"module"`
	Field     string  `json:"field"`
	Predicted string  `json:"predicted"`
	Actual    string  `json:"actual"`
	Delta     float64 `json:"delta,omitempty"`
	Match     bool    `json:"match"`
}

// Comparison is the full diff between a prediction set and computed metrics.
type Comparison struct {
	Diffs   []FieldDiff `json:"diffs"`
	Matched int         `json:"matched"`
	Total   int         `json:"total"`
}

// Compare diffs predictions against computed metrics. A numeric prediction
// matches when it is within tolerance of a defined actual value; predicting
// a number for an undefined metric is always a miss, since undefined is an
// outcome of its own. Diffs are sorted by module, then field.
func Compare(predictions []Prediction, metrics map[string]coupling.ModuleMetrics, tolerance float64) Comparison {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var c Comparison
	for _, p := range predictions {
		mm, ok := metrics[p.Module]
		if !ok {
			c.Diffs = append(c.Diffs, FieldDiff{
				Module:    p.Module,
				Field:     "module",
				Predicted: p.Module,
				Actual:    "not in analyzed graph",
			})
			c.Total++
			continue
		}

		if p.Ca != nil {
			c.add(diffCount(p.Module, "ca", *p.Ca, mm.Ca))
		}
		if p.Ce != nil {
			c.add(diffCount(p.Module, "ce", *p.Ce, mm.Ce))
		}
		if p.Instability != nil {
			c.add(diffMetric(p.Module, "instability", *p.Instability, mm.Instability, tolerance))
		}
		if p.Abstractness != nil {
			c.add(diffMetric(p.Module, "abstractness", *p.Abstractness, mm.Abstractness, tolerance))
		}
		if p.Distance != nil {
			c.add(diffMetric(p.Module, "distance", *p.Distance, mm.Distance, tolerance))
		}
	}

	sort.Slice(c.Diffs, func(i, j int) bool {
		if c.Diffs[i].Module != c.Diffs[j].Module {
			return c.Diffs[i].Module < c.Diffs[j].Module
		}
		return c.Diffs[i].Field < c.Diffs[j].Field
	})
	return c
}

func (c *Comparison) add(d FieldDiff) {
	c.Diffs = append(c.Diffs, d)
	c.Total++
	if d.Match {
		c.Matched++
	}
}

func diffCount(module, field string, predicted, actual int) FieldDiff {
	return FieldDiff{
		Module:    module,
		Field:     field,
		Predicted: fmt.Sprintf("%d", predicted),
		Actual:    fmt.Sprintf("%d", actual),
		Delta:     float64(actual - predicted),
		Match:     predicted == actual,
	}
}

func diffMetric(module, field string, predicted float64, actual coupling.Metric, tolerance float64) FieldDiff {
	d := FieldDiff{
		Module:    module,
		Field:     field,
		Predicted: fmt.Sprintf("%.3f", predicted),
		Actual:    actual.String(),
	}
	if !actual.Defined {
		return d
	}
	d.Delta = actual.Value - predicted
	if d.Delta <= tolerance && d.Delta >= -tolerance {
		d.Match = true
	}
	return d
}
