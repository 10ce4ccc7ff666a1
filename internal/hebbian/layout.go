package hebbian

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Method identifies which algorithm produced a layout, so callers and
// tests can tell whether the spring fallback was taken.
type Method string

const (
	// MethodStress is the primary distance-respecting layout.
	MethodStress Method = "stress"
	// MethodSpring is the deterministic force-directed fallback.
	MethodSpring Method = "spring"
)

// Point is a dimensionless 2D coordinate in pairwise-distance space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout maps every node of a graph to a coordinate. It is rebuilt on
// every render; coordinates carry no absolute scale across invocations.
type Layout struct {
	Positions map[string]Point `json:"positions"`
	Method    Method           `json:"method"`
}

// distanceOffset keeps the weight-to-distance transform bounded: with
// weight 0 the distance is 1/0.3 rather than a division by zero, and with
// weight == maxWeight it is 1/1.3.
const distanceOffset = 0.3

const (
	stressMaxIter   = 300
	stressTolerance = 1e-6
	springSeed      = 42
	springIters     = 50
)

// ComputeLayout places the nodes of a non-empty graph in 2D. Edge weight
// acts as inverse distance: each edge's target length is
// 1/(weight/maxWeight + 0.3), so strongly associated concepts land close
// together. The primary algorithm is stress majorization over all-pairs
// shortest-path distances; when the graph is disconnected (unreachable
// pairs) or the iteration degenerates, a spring embedding with a fixed
// seed takes over. The result is a heuristic, not an exact metric
// embedding.
func ComputeLayout(g *Graph) (*Layout, error) {
	if g.NodeCount() == 0 {
		return nil, ErrEmptyGraph
	}
	for _, e := range g.Edges() {
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
			return nil, &LayoutError{
				Stage: "validate",
				Err:   fmt.Errorf("edge %s-%s has malformed weight %v", e.Source, e.Target, e.Weight),
			}
		}
	}

	nodes := g.Nodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	maxW := g.MaxWeight()
	if maxW == 0 {
		maxW = 1
	}

	if pos, err := stressLayout(g, nodes, index, maxW); err == nil {
		return &Layout{Positions: toPositions(nodes, pos), Method: MethodStress}, nil
	}

	pos, err := springLayout(g, nodes, index, maxW)
	if err != nil {
		return nil, &LayoutError{Stage: "spring", Err: err}
	}
	return &Layout{Positions: toPositions(nodes, pos), Method: MethodSpring}, nil
}

func toPositions(nodes []string, pos [][2]float64) map[string]Point {
	out := make(map[string]Point, len(nodes))
	for i, n := range nodes {
		out[n] = Point{X: pos[i][0], Y: pos[i][1]}
	}
	return out
}

// edgeDistance converts an association weight to a target layout distance.
func edgeDistance(weight, maxW float64) float64 {
	return 1.0 / (weight/maxW + distanceOffset)
}

// stressLayout runs SMACOF-style stress majorization against shortest-path
// target distances. It fails (rather than guessing) on disconnected graphs
// and on non-finite intermediate state; the caller then falls back.
func stressLayout(g *Graph, nodes []string, index map[string]int, maxW float64) ([][2]float64, error) {
	n := len(nodes)

	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := range nodes {
		wg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		a, b := index[e.Source], index[e.Target]
		if a == b {
			continue // self loops carry no distance information
		}
		wg.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(int64(a)),
			T: simple.Node(int64(b)),
			W: edgeDistance(e.Weight, maxW),
		})
	}

	shortest := path.DijkstraAllPaths(wg)

	// Target distance matrix; unreachable pairs abort the stress layout.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i == j {
				continue
			}
			d := shortest.Weight(int64(i), int64(j))
			if math.IsInf(d, 0) {
				return nil, errors.New("graph is disconnected")
			}
			dist[i][j] = d
		}
	}

	// Deterministic start: nodes on a circle scaled to the mean distance.
	var mean float64
	if n > 1 {
		var sum float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				sum += dist[i][j]
			}
		}
		mean = sum / float64(n*(n-1)/2)
	}
	if mean == 0 {
		mean = 1
	}
	pos := make([][2]float64, n)
	for i := range pos {
		angle := 2 * math.Pi * float64(i) / float64(n)
		pos[i][0] = mean * math.Cos(angle)
		pos[i][1] = mean * math.Sin(angle)
	}
	if n == 1 {
		return pos, nil
	}

	prev := stress(pos, dist)
	next := make([][2]float64, n)
	for iter := 0; iter < stressMaxIter; iter++ {
		for i := 0; i < n; i++ {
			var sx, sy, sw float64
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				d := dist[i][j]
				w := 1.0 / (d * d)
				dx := pos[i][0] - pos[j][0]
				dy := pos[i][1] - pos[j][1]
				norm := math.Hypot(dx, dy)
				if norm < 1e-9 {
					// Coincident points: nudge along a fixed axis.
					dx, dy, norm = 1e-9, 0, 1e-9
				}
				sx += w * (pos[j][0] + d*dx/norm)
				sy += w * (pos[j][1] + d*dy/norm)
				sw += w
			}
			next[i][0] = sx / sw
			next[i][1] = sy / sw
		}
		pos, next = next, pos

		cur := stress(pos, dist)
		if math.IsNaN(cur) || math.IsInf(cur, 0) {
			return nil, errors.New("stress diverged to non-finite state")
		}
		if prev-cur < stressTolerance*prev {
			break
		}
		prev = cur
	}

	for i := range pos {
		if math.IsNaN(pos[i][0]) || math.IsNaN(pos[i][1]) {
			return nil, errors.New("non-finite coordinate")
		}
	}
	return pos, nil
}

func stress(pos [][2]float64, dist [][]float64) float64 {
	var s float64
	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			d := dist[i][j]
			r := math.Hypot(pos[i][0]-pos[j][0], pos[i][1]-pos[j][1]) - d
			s += r * r / (d * d)
		}
	}
	return s
}

// springLayout is a weighted Fruchterman-Reingold embedding seeded with a
// fixed PRNG so repeated renders of the same graph agree.
func springLayout(g *Graph, nodes []string, index map[string]int, maxW float64) ([][2]float64, error) {
	n := len(nodes)
	rng := rand.New(rand.NewSource(springSeed))

	pos := make([][2]float64, n)
	for i := range pos {
		pos[i][0] = rng.Float64()*2 - 1
		pos[i][1] = rng.Float64()*2 - 1
	}
	if n == 1 {
		return pos, nil
	}

	edges := g.Edges()
	k := 2.0 / math.Sqrt(float64(n))
	temp := 0.1
	cool := temp / float64(springIters+1)

	disp := make([][2]float64, n)
	for iter := 0; iter < springIters; iter++ {
		for i := range disp {
			disp[i] = [2]float64{}
		}

		// Repulsion between every pair.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := pos[i][0] - pos[j][0]
				dy := pos[i][1] - pos[j][1]
				d := math.Hypot(dx, dy)
				if d < 1e-9 {
					d, dx, dy = 1e-9, 1e-9, 0
				}
				f := k * k / d
				disp[i][0] += dx / d * f
				disp[i][1] += dy / d * f
				disp[j][0] -= dx / d * f
				disp[j][1] -= dy / d * f
			}
		}

		// Attraction along edges, scaled by association strength.
		for _, e := range edges {
			a, b := index[e.Source], index[e.Target]
			if a == b {
				continue
			}
			dx := pos[a][0] - pos[b][0]
			dy := pos[a][1] - pos[b][1]
			d := math.Hypot(dx, dy)
			if d < 1e-9 {
				continue
			}
			f := d * d / k * (e.Weight/maxW + distanceOffset)
			disp[a][0] -= dx / d * f
			disp[a][1] -= dy / d * f
			disp[b][0] += dx / d * f
			disp[b][1] += dy / d * f
		}

		for i := 0; i < n; i++ {
			d := math.Hypot(disp[i][0], disp[i][1])
			if d < 1e-9 {
				continue
			}
			step := math.Min(d, temp)
			pos[i][0] += disp[i][0] / d * step
			pos[i][1] += disp[i][1] / d * step
		}
		temp -= cool
	}

	for i := range pos {
		if math.IsNaN(pos[i][0]) || math.IsNaN(pos[i][1]) ||
			math.IsInf(pos[i][0], 0) || math.IsInf(pos[i][1], 0) {
			return nil, errors.New("non-finite coordinate")
		}
	}
	return pos, nil
}
