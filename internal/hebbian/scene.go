package hebbian

import (
	"fmt"
)

// Visual encoding ranges. Line width and opacity are interpolated from the
// normalized edge weight; marker size from node degree. The rendering
// surface maps the raw degree through its own color scale.
const (
	minLineWidth = 0.3
	maxLineWidth = 2.5

	minOpacity = 0.25
	maxOpacity = 0.80

	minMarkerSize = 16.0
	maxMarkerSize = 46.0

	// labelBudget caps on-canvas labels; full identifiers stay in ID.
	labelBudget = 20
)

// equalWeightNorm is the normalized weight assigned to every edge when all
// weights are identical and the (max-min) denominator would be zero.
const equalWeightNorm = 0.5

// EdgeSegment is one drawable edge with endpoint coordinates and style.
type EdgeSegment struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	X0         float64 `json:"x0"`
	Y0         float64 `json:"y0"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	Weight     float64 `json:"weight"`
	Normalized float64 `json:"normalized"`
	Width      float64 `json:"width"`
	Opacity    float64 `json:"opacity"`
}

// NodeMarker is one drawable concept node. Degree doubles as the color
// value for the surface's low/mid/high scale.
type NodeMarker struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Size   float64 `json:"size"`
	Degree int     `json:"degree"`
	Label  string  `json:"label"`
	Hover  string  `json:"hover"`
}

// SceneStats summarizes the rendered graph.
type SceneStats struct {
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
	AvgWeight float64 `json:"avg_weight"`
	HubNode   string  `json:"hub_node"`
	HubDegree int     `json:"hub_degree"`
}

// Scene is the renderable output: positioned, styled edges and nodes plus
// summary statistics. It is an immutable value; the HTTP layer and the
// export command serialize it directly.
type Scene struct {
	Edges  []EdgeSegment `json:"edges"`
	Nodes  []NodeMarker  `json:"nodes"`
	Stats  SceneStats    `json:"stats"`
	Layout Method        `json:"layout_method"`
}

// DeriveScene encodes a laid-out graph into drawable segments and markers.
// Weights are normalized into [0,1] over the graph's surviving edges, with
// the all-equal-weights case pinned to 0.5 so no division blows up.
func DeriveScene(g *Graph, layout *Layout) *Scene {
	edges := g.Edges()

	minW, maxW := edges[0].Weight, edges[0].Weight
	var sumW float64
	for _, e := range edges {
		if e.Weight < minW {
			minW = e.Weight
		}
		if e.Weight > maxW {
			maxW = e.Weight
		}
		sumW += e.Weight
	}
	span := maxW - minW

	segments := make([]EdgeSegment, 0, len(edges))
	for _, e := range edges {
		norm := equalWeightNorm
		if span > 0 {
			norm = (e.Weight - minW) / span
		}
		p0 := layout.Positions[e.Source]
		p1 := layout.Positions[e.Target]
		segments = append(segments, EdgeSegment{
			Source:     e.Source,
			Target:     e.Target,
			X0:         p0.X,
			Y0:         p0.Y,
			X1:         p1.X,
			Y1:         p1.Y,
			Weight:     e.Weight,
			Normalized: norm,
			Width:      minLineWidth + norm*(maxLineWidth-minLineWidth),
			Opacity:    minOpacity + norm*(maxOpacity-minOpacity),
		})
	}

	nodes := g.Nodes()
	maxDegree := 0
	for _, n := range nodes {
		if d := g.Degree(n); d > maxDegree {
			maxDegree = d
		}
	}

	markers := make([]NodeMarker, 0, len(nodes))
	hub, hubDegree := "", -1
	for _, n := range nodes {
		d := g.Degree(n)
		// First-encountered node wins degree ties.
		if d > hubDegree {
			hub, hubDegree = n, d
		}
		frac := 0.0
		if maxDegree > 0 {
			frac = float64(d) / float64(maxDegree)
		}
		markers = append(markers, NodeMarker{
			ID:     n,
			X:      layout.Positions[n].X,
			Y:      layout.Positions[n].Y,
			Size:   minMarkerSize + frac*(maxMarkerSize-minMarkerSize),
			Degree: d,
			Label:  displayLabel(n),
			Hover:  fmt.Sprintf("%s\nConnections: %d", n, d),
		})
	}

	return &Scene{
		Edges: segments,
		Nodes: markers,
		Stats: SceneStats{
			NodeCount: len(nodes),
			EdgeCount: len(edges),
			AvgWeight: sumW / float64(len(edges)),
			HubNode:   hub,
			HubDegree: hubDegree,
		},
		Layout: layout.Method,
	}
}

// Render is the full pipeline: graph construction, layout, encoding.
// It returns ErrEmptyGraph for an empty edge table and *LayoutError when
// both layout algorithms fail; callers never see a panic or a partial
// scene.
func Render(edges []Edge) (*Scene, error) {
	g := BuildGraph(edges)
	if g.NodeCount() == 0 {
		return nil, ErrEmptyGraph
	}
	layout, err := ComputeLayout(g)
	if err != nil {
		return nil, err
	}
	return DeriveScene(g, layout), nil
}

// displayLabel truncates long concept names for on-canvas text. The full
// identifier is preserved on the marker for identity and hover text.
func displayLabel(name string) string {
	runes := []rune(name)
	if len(runes) <= labelBudget {
		return name
	}
	return string(runes[:labelBudget]) + "..."
}
