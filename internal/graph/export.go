package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportDOT generates a Graphviz DOT representation of the graph.
func ExportDOT(g *DependencyGraph) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\" shape=box style=filled fillcolor=\"#1f6feb\" fontcolor=white];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10 color=\"#8b949e\"];\n\n")

	for _, m := range g.Modules {
		label := m.Name
		if m.TotalTypes > 0 {
			label = fmt.Sprintf("%s\\n%d/%d abstract", m.Name, m.AbstractTypes, m.TotalTypes)
		}
		b.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\"];\n", m.Name, label))
	}
	b.WriteString("\n")

	for _, d := range g.Dependencies {
		b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\";\n", d.From, d.To))
	}
	for _, name := range g.SelfLoops {
		b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [style=dashed color=\"#f85149\"];\n", name, name))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportJSON serializes the graph to indented JSON.
func ExportJSON(g *DependencyGraph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// FormatStats returns a human-readable summary of the graph.
func FormatStats(g *DependencyGraph) string {
	var b strings.Builder
	b.WriteString("Dependency Graph\n")
	b.WriteString("================\n\n")
	b.WriteString(fmt.Sprintf("Modules:      %d\n", g.ModuleCount()))
	b.WriteString(fmt.Sprintf("Dependencies: %d\n", g.DependencyCount()))
	if len(g.SelfLoops) > 0 {
		b.WriteString(fmt.Sprintf("Self-loops:   %d (%s)\n", len(g.SelfLoops), strings.Join(g.SelfLoops, ", ")))
	}

	var maxOut, maxIn int
	var maxOutMod, maxInMod string
	for _, m := range g.Modules {
		if n := len(g.DependenciesOf(m.Name)); n > maxOut {
			maxOut, maxOutMod = n, m.Name
		}
		if n := len(g.Dependents(m.Name)); n > maxIn {
			maxIn, maxInMod = n, m.Name
		}
	}
	if maxOutMod != "" {
		b.WriteString(fmt.Sprintf("Max fan-out:  %d (%s)\n", maxOut, maxOutMod))
	}
	if maxInMod != "" {
		b.WriteString(fmt.Sprintf("Max fan-in:   %d (%s)\n", maxIn, maxInMod))
	}

	return b.String()
}
