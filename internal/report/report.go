// Package report collects timings and statistics for a render pass and
// prints them for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mnemoverse/mnemoscope/internal/hebbian"
)

// RenderReport collects statistics for one graph render.
type RenderReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration_ms,omitempty"`
	Schema     string        `json:"schema"`
	Query      QueryMetrics  `json:"query"`
	Layout     LayoutMetrics `json:"layout"`
	Scene      SceneMetrics  `json:"scene"`
	Errors     []string      `json:"errors,omitempty"`
}

type QueryMetrics struct {
	EdgesLoaded int           `json:"edges_loaded"`
	MinWeight   float64       `json:"min_weight"`
	Duration    time.Duration `json:"duration_ms"`
}

type LayoutMetrics struct {
	Method   string        `json:"method"`
	Duration time.Duration `json:"duration_ms"`
	Fallback bool          `json:"fallback"`
}

type SceneMetrics struct {
	Nodes     int     `json:"nodes"`
	Edges     int     `json:"edges"`
	AvgWeight float64 `json:"avg_weight"`
	Hub       string  `json:"hub"`
	HubDegree int     `json:"hub_degree"`
}

// New starts tracking a render pass against one schema.
func New(schema string) *RenderReport {
	return &RenderReport{StartedAt: time.Now(), Schema: schema}
}

// CollectQuery records the edge load step.
func (r *RenderReport) CollectQuery(edges int, minWeight float64, d time.Duration) {
	r.Query.EdgesLoaded = edges
	r.Query.MinWeight = minWeight
	r.Query.Duration = d
}

// CollectScene records layout and scene statistics from a rendered scene.
func (r *RenderReport) CollectScene(scene *hebbian.Scene, layoutDuration time.Duration) {
	r.Layout.Method = string(scene.Layout)
	r.Layout.Duration = layoutDuration
	r.Layout.Fallback = scene.Layout == hebbian.MethodSpring

	r.Scene.Nodes = scene.Stats.NodeCount
	r.Scene.Edges = scene.Stats.EdgeCount
	r.Scene.AvgWeight = scene.Stats.AvgWeight
	r.Scene.Hub = scene.Stats.HubNode
	r.Scene.HubDegree = scene.Stats.HubDegree
}

// Finish marks the render as complete.
func (r *RenderReport) Finish(errs []string) {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.Errors = errs
}

// PrintSummary writes a human-readable summary.
func (r *RenderReport) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║       MNEMOSCOPE RENDER REPORT       ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Schema:      %-23s ║\n", r.Schema)
	fmt.Fprintf(w, "║ Duration:    %-23s ║\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ QUERY\n")
	fmt.Fprintf(w, "║   Edges:       %d (min weight %.2f)\n", r.Query.EdgesLoaded, r.Query.MinWeight)
	fmt.Fprintf(w, "║   Time:        %s\n", r.Query.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ LAYOUT\n")
	fmt.Fprintf(w, "║   Method:      %s\n", r.Layout.Method)
	if r.Layout.Fallback {
		fmt.Fprintf(w, "║   Fallback:    yes\n")
	}
	fmt.Fprintf(w, "║   Time:        %s\n", r.Layout.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ SCENE\n")
	fmt.Fprintf(w, "║   Concepts:    %d\n", r.Scene.Nodes)
	fmt.Fprintf(w, "║   Edges:       %d\n", r.Scene.Edges)
	fmt.Fprintf(w, "║   Avg Weight:  %.3f\n", r.Scene.AvgWeight)
	fmt.Fprintf(w, "║   Hub:         %s (%d connections)\n", r.Scene.Hub, r.Scene.HubDegree)
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the report as formatted JSON.
func (r *RenderReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
