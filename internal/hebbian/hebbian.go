// Package hebbian renders the Hebbian association network of a KDM
// experiment: it builds an undirected weighted graph from co-activation
// edges, computes a 2D layout where stronger associations sit closer
// together, and derives a visually-encoded scene plus summary statistics.
//
// Everything in this package is a pure transform. Nothing is cached or
// persisted between calls, so it is safe to invoke from any number of
// concurrent requests.
package hebbian

// Edge is a co-activation relationship between two concepts as stored in
// the hebbian_edges table, joined to concept names.
type Edge struct {
	Source        string  `json:"source"`
	Target        string  `json:"target"`
	Weight        float64 `json:"weight"`
	CoActivations int     `json:"co_activation_count"`
}

type pairKey struct {
	a, b string
}

// Graph is the in-memory association network. Edges are undirected:
// (A,B,w) and (B,A,w) are the same edge. Node order is first-encountered
// order, which later drives deterministic tie-breaking.
type Graph struct {
	order []string
	adj   map[string]map[string]float64
	pairs []pairKey
}

// BuildGraph accumulates an adjacency structure from an edge table.
// Duplicate unordered pairs are last-write-wins: the final occurrence of a
// pair determines its weight. This mirrors how repeated co-activation
// rows overwrite each other upstream; aggregation is deliberately not
// performed here.
func BuildGraph(edges []Edge) *Graph {
	g := &Graph{adj: make(map[string]map[string]float64)}
	for _, e := range edges {
		g.addNode(e.Source)
		g.addNode(e.Target)
		if _, seen := g.adj[e.Source][e.Target]; !seen {
			g.pairs = append(g.pairs, pairKey{e.Source, e.Target})
		}
		g.adj[e.Source][e.Target] = e.Weight
		g.adj[e.Target][e.Source] = e.Weight
	}
	return g
}

func (g *Graph) addNode(name string) {
	if _, ok := g.adj[name]; ok {
		return
	}
	g.adj[name] = make(map[string]float64)
	g.order = append(g.order, name)
}

// NodeCount returns the number of concepts with at least one edge.
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of distinct unordered pairs.
func (g *Graph) EdgeCount() int { return len(g.pairs) }

// Nodes returns concept names in first-encountered order.
func (g *Graph) Nodes() []string {
	nodes := make([]string, len(g.order))
	copy(nodes, g.order)
	return nodes
}

// Degree returns the number of distinct neighbors of a node.
func (g *Graph) Degree(node string) int { return len(g.adj[node]) }

// Weight reports the current weight between two nodes.
func (g *Graph) Weight(a, b string) (float64, bool) {
	w, ok := g.adj[a][b]
	return w, ok
}

// Edges materializes the distinct unordered pairs in first-encountered
// order, carrying the surviving (last-written) weight for each pair.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.pairs))
	for _, p := range g.pairs {
		edges = append(edges, Edge{Source: p.a, Target: p.b, Weight: g.adj[p.a][p.b]})
	}
	return edges
}

// MaxWeight returns the largest edge weight, or 0 for an empty graph.
func (g *Graph) MaxWeight() float64 {
	max := 0.0
	for _, p := range g.pairs {
		if w := g.adj[p.a][p.b]; w > max {
			max = w
		}
	}
	return max
}
