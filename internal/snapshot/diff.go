package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tkaracan/caliper/internal/coupling"
	"github.com/tkaracan/caliper/internal/cycles"
	"github.com/tkaracan/caliper/internal/sdp"
)

// DiffType indicates the kind of change.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffRemoved  DiffType = "removed"
	DiffModified DiffType = "modified"
)

// SnapshotDiff is the complete diff between two analysis snapshots.
type SnapshotDiff struct {
	OldID              string          `json:"old_id"`
	NewID              string          `json:"new_id"`
	OldTag             string          `json:"old_tag,omitempty"`
	NewTag             string          `json:"new_tag,omitempty"`
	ModuleDiffs        []ModuleDiff    `json:"module_diffs,omitempty"`
	CyclesIntroduced   []cycles.Cycle  `json:"cycles_introduced,omitempty"`
	CyclesResolved     []cycles.Cycle  `json:"cycles_resolved,omitempty"`
	ViolationsAdded    []sdp.Violation `json:"violations_added,omitempty"`
	ViolationsResolved []sdp.Violation `json:"violations_resolved,omitempty"`
	Summary            DiffSummary     `json:"summary"`
}

// ModuleDiff records how one module's metrics moved between runs.
type ModuleDiff struct {
	Module            string   `json:"module"`
	Type              DiffType `json:"type"`
	CaDelta           int      `json:"ca_delta,omitempty"`
	CeDelta           int      `json:"ce_delta,omitempty"`
	InstabilityDelta  *float64 `json:"instability_delta,omitempty"`
	AbstractnessDelta *float64 `json:"abstractness_delta,omitempty"`
	DistanceDelta     *float64 `json:"distance_delta,omitempty"`
	OldZone           string   `json:"old_zone,omitempty"`
	NewZone           string   `json:"new_zone,omitempty"`
}

// DiffSummary provides aggregate stats about the diff.
type DiffSummary struct {
	ModulesAdded    int  `json:"modules_added"`
	ModulesRemoved  int  `json:"modules_removed"`
	ModulesChanged  int  `json:"modules_changed"`
	CycleDelta      int  `json:"cycle_delta"`
	ViolationDelta  int  `json:"violation_delta"`
	CouplingHealthy bool `json:"coupling_improved_or_steady"`
}

// Diff compares two snapshots, loading both full results from the store.
func Diff(old, new *Snapshot, store *Store) (*SnapshotDiff, error) {
	oldResult, err := store.LoadResult(old)
	if err != nil {
		return nil, fmt.Errorf("load old result: %w", err)
	}
	newResult, err := store.LoadResult(new)
	if err != nil {
		return nil, fmt.Errorf("load new result: %w", err)
	}

	d := &SnapshotDiff{
		OldID:  old.ID,
		NewID:  new.ID,
		OldTag: old.Tag,
		NewTag: new.Tag,
	}

	d.ModuleDiffs = diffModules(oldResult.Metrics, newResult.Metrics)
	d.CyclesIntroduced, d.CyclesResolved = diffCycles(oldResult.Cycles, newResult.Cycles)
	d.ViolationsAdded, d.ViolationsResolved = diffViolations(oldResult.Violations, newResult.Violations)
	d.Summary = computeSummary(d)

	return d, nil
}

func diffModules(oldMetrics, newMetrics map[string]coupling.ModuleMetrics) []ModuleDiff {
	var diffs []ModuleDiff

	for name, oldM := range oldMetrics {
		newM, ok := newMetrics[name]
		if !ok {
			diffs = append(diffs, ModuleDiff{Module: name, Type: DiffRemoved})
			continue
		}
		if md, changed := diffModule(oldM, newM); changed {
			diffs = append(diffs, md)
		}
	}
	for name := range newMetrics {
		if _, ok := oldMetrics[name]; !ok {
			diffs = append(diffs, ModuleDiff{Module: name, Type: DiffAdded})
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Module < diffs[j].Module })
	return diffs
}

func diffModule(oldM, newM coupling.ModuleMetrics) (ModuleDiff, bool) {
	md := ModuleDiff{
		Module:  oldM.Module,
		Type:    DiffModified,
		CaDelta: newM.Ca - oldM.Ca,
		CeDelta: newM.Ce - oldM.Ce,
	}
	changed := md.CaDelta != 0 || md.CeDelta != 0

	if delta, moved := metricDelta(oldM.Instability, newM.Instability); moved {
		md.InstabilityDelta = delta
		changed = true
	}
	if delta, moved := metricDelta(oldM.Abstractness, newM.Abstractness); moved {
		md.AbstractnessDelta = delta
		changed = true
	}
	if delta, moved := metricDelta(oldM.Distance, newM.Distance); moved {
		md.DistanceDelta = delta
		changed = true
	}
	if oldM.Zone != newM.Zone {
		md.OldZone = string(oldM.Zone)
		md.NewZone = string(newM.Zone)
		changed = true
	}
	return md, changed
}

// metricDelta reports the movement between two metric values. A transition
// between defined and undefined counts as a change with no numeric delta.
func metricDelta(oldM, newM coupling.Metric) (*float64, bool) {
	switch {
	case oldM.Defined && newM.Defined:
		if oldM.Value == newM.Value {
			return nil, false
		}
		d := newM.Value - oldM.Value
		return &d, true
	case oldM.Defined != newM.Defined:
		return nil, true
	default:
		return nil, false
	}
}

func diffCycles(oldCycles, newCycles []cycles.Cycle) (introduced, resolved []cycles.Cycle) {
	key := func(c cycles.Cycle) string { return strings.Join(c.Members, "\x00") }

	oldSet := make(map[string]bool, len(oldCycles))
	for _, c := range oldCycles {
		oldSet[key(c)] = true
	}
	newSet := make(map[string]bool, len(newCycles))
	for _, c := range newCycles {
		newSet[key(c)] = true
	}

	for _, c := range newCycles {
		if !oldSet[key(c)] {
			introduced = append(introduced, c)
		}
	}
	for _, c := range oldCycles {
		if !newSet[key(c)] {
			resolved = append(resolved, c)
		}
	}
	return introduced, resolved
}

func diffViolations(oldViolations, newViolations []sdp.Violation) (added, resolved []sdp.Violation) {
	key := func(v sdp.Violation) string { return v.Depender + "\x00" + v.Dependee }

	oldSet := make(map[string]bool, len(oldViolations))
	for _, v := range oldViolations {
		oldSet[key(v)] = true
	}
	newSet := make(map[string]bool, len(newViolations))
	for _, v := range newViolations {
		newSet[key(v)] = true
	}

	for _, v := range newViolations {
		if !oldSet[key(v)] {
			added = append(added, v)
		}
	}
	for _, v := range oldViolations {
		if !newSet[key(v)] {
			resolved = append(resolved, v)
		}
	}
	return added, resolved
}

func computeSummary(d *SnapshotDiff) DiffSummary {
	s := DiffSummary{
		CycleDelta:     len(d.CyclesIntroduced) - len(d.CyclesResolved),
		ViolationDelta: len(d.ViolationsAdded) - len(d.ViolationsResolved),
	}
	for _, md := range d.ModuleDiffs {
		switch md.Type {
		case DiffAdded:
			s.ModulesAdded++
		case DiffRemoved:
			s.ModulesRemoved++
		case DiffModified:
			s.ModulesChanged++
		}
	}
	s.CouplingHealthy = s.CycleDelta <= 0 && s.ViolationDelta <= 0
	return s
}

// Format renders the diff for CLI output.
func (d *SnapshotDiff) Format() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Snapshot diff %s -> %s\n", d.OldID, d.NewID))
	b.WriteString(fmt.Sprintf("  Modules: +%d -%d ~%d\n",
		d.Summary.ModulesAdded, d.Summary.ModulesRemoved, d.Summary.ModulesChanged))
	b.WriteString(fmt.Sprintf("  Cycles: %+d, Violations: %+d\n",
		d.Summary.CycleDelta, d.Summary.ViolationDelta))

	for _, c := range d.CyclesIntroduced {
		b.WriteString(fmt.Sprintf("  cycle introduced: %s\n", strings.Join(c.Members, " -> ")))
	}
	for _, c := range d.CyclesResolved {
		b.WriteString(fmt.Sprintf("  cycle resolved: %s\n", strings.Join(c.Members, " -> ")))
	}
	for _, v := range d.ViolationsAdded {
		b.WriteString(fmt.Sprintf("  violation added: %s -> %s (deltaI=%.3f)\n", v.Depender, v.Dependee, v.DeltaI))
	}
	for _, v := range d.ViolationsResolved {
		b.WriteString(fmt.Sprintf("  violation resolved: %s -> %s\n", v.Depender, v.Dependee))
	}
	return b.String()
}
