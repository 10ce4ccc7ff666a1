// Package export serializes rendered concept scenes for use outside the
// dashboard: Graphviz DOT, Mermaid diagrams and indented JSON.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mnemoverse/mnemoscope/internal/hebbian"
)

// ExportDOT generates a Graphviz DOT representation of the scene. The
// association network is undirected, so the output is a graph, not a
// digraph, with penwidth carrying the derived edge widths.
func ExportDOT(scene *hebbian.Scene) string {
	var b strings.Builder
	b.WriteString("graph concepts {\n")
	b.WriteString("  layout=neato;\n")
	b.WriteString("  node [fontname=\"Helvetica\" shape=circle style=filled fillcolor=\"#1f6feb\" fontcolor=white];\n")
	b.WriteString("  edge [color=\"#8b949e\"];\n\n")

	for _, n := range scene.Nodes {
		b.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\" width=%.2f pos=\"%f,%f!\"];\n",
			n.ID, n.Label, nodeWidth(n.Size), n.X, n.Y))
	}
	b.WriteString("\n")

	for _, e := range scene.Edges {
		b.WriteString(fmt.Sprintf("  \"%s\" -- \"%s\" [penwidth=%.2f label=\"%.2f\" fontsize=10];\n",
			e.Source, e.Target, e.Width, e.Weight))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid diagram of the scene. Mermaid has
// no undirected edge, so the thick link style stands in for strong
// associations.
func ExportMermaid(scene *hebbian.Scene) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, n := range scene.Nodes {
		b.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", sanitizeMermaidID(n.ID), n.Label))
	}

	for _, e := range scene.Edges {
		arrow := "---"
		if e.Normalized >= 0.5 {
			arrow = "==="
		}
		b.WriteString(fmt.Sprintf("  %s %s|%.2f| %s\n",
			sanitizeMermaidID(e.Source), arrow, e.Weight, sanitizeMermaidID(e.Target)))
	}

	return b.String()
}

// ExportJSON serializes the scene to indented JSON.
func ExportJSON(scene *hebbian.Scene) ([]byte, error) {
	return json.MarshalIndent(scene, "", "  ")
}

// FormatStats returns a human-readable summary of scene statistics.
func FormatStats(scene *hebbian.Scene) string {
	var b strings.Builder
	b.WriteString("Concept Graph Statistics\n")
	b.WriteString("========================\n\n")
	b.WriteString(fmt.Sprintf("Concepts:    %d\n", scene.Stats.NodeCount))
	b.WriteString(fmt.Sprintf("Edges:       %d\n", scene.Stats.EdgeCount))
	b.WriteString(fmt.Sprintf("Avg Weight:  %.3f\n", scene.Stats.AvgWeight))
	b.WriteString(fmt.Sprintf("Hub:         %s (%d connections)\n", scene.Stats.HubNode, scene.Stats.HubDegree))
	b.WriteString(fmt.Sprintf("Layout:      %s\n", scene.Layout))
	return b.String()
}

// nodeWidth maps marker sizes onto DOT circle widths in inches.
func nodeWidth(size float64) float64 {
	return 0.3 + size/46.0
}

func sanitizeMermaidID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}
