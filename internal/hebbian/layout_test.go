package hebbian

import (
	"errors"
	"math"
	"testing"
)

func euclid(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestComputeLayout_EmptyGraph(t *testing.T) {
	_, err := ComputeLayout(BuildGraph(nil))
	if !errors.Is(err, ErrEmptyGraph) {
		t.Fatalf("Expected ErrEmptyGraph, got %v", err)
	}
}

func TestComputeLayout_WeightMonotonicity(t *testing.T) {
	// Strong a-b edge, weak a-c edge: b must land closer to a than c does.
	g := BuildGraph([]Edge{
		{Source: "a", Target: "b", Weight: 0.9},
		{Source: "a", Target: "c", Weight: 0.1},
	})

	layout, err := ComputeLayout(g)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	dAB := euclid(layout.Positions["a"], layout.Positions["b"])
	dAC := euclid(layout.Positions["a"], layout.Positions["c"])
	if dAB > dAC+1e-6 {
		t.Errorf("Expected d(a,b) <= d(a,c), got %v > %v", dAB, dAC)
	}
}

func TestComputeLayout_Deterministic(t *testing.T) {
	edges := []Edge{
		{Source: "a", Target: "b", Weight: 0.9},
		{Source: "b", Target: "c", Weight: 0.4},
		{Source: "c", Target: "a", Weight: 0.2},
	}

	first, err := ComputeLayout(BuildGraph(edges))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := ComputeLayout(BuildGraph(edges))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first.Method != second.Method {
		t.Fatalf("Methods differ: %s vs %s", first.Method, second.Method)
	}
	for node, p1 := range first.Positions {
		p2 := second.Positions[node]
		if p1 != p2 {
			t.Errorf("Node %s moved between runs: %v vs %v", node, p1, p2)
		}
	}
}

func TestComputeLayout_ConnectedUsesStress(t *testing.T) {
	g := BuildGraph([]Edge{
		{Source: "a", Target: "b", Weight: 0.5},
		{Source: "b", Target: "c", Weight: 0.5},
	})

	layout, err := ComputeLayout(g)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if layout.Method != MethodStress {
		t.Errorf("Expected stress layout for connected graph, got %s", layout.Method)
	}
}

func TestComputeLayout_DisconnectedFallsBackToSpring(t *testing.T) {
	// Two components: shortest-path distances are unreachable across them.
	g := BuildGraph([]Edge{
		{Source: "a", Target: "b", Weight: 0.5},
		{Source: "c", Target: "d", Weight: 0.5},
	})

	layout, err := ComputeLayout(g)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if layout.Method != MethodSpring {
		t.Errorf("Expected spring fallback for disconnected graph, got %s", layout.Method)
	}
	for node, p := range layout.Positions {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			t.Errorf("Node %s has non-finite position %v", node, p)
		}
	}
}

func TestComputeLayout_AllZeroWeights(t *testing.T) {
	// maxWeight guard: zero weights must not divide by zero.
	g := BuildGraph([]Edge{
		{Source: "a", Target: "b", Weight: 0},
		{Source: "b", Target: "c", Weight: 0},
	})

	layout, err := ComputeLayout(g)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(layout.Positions) != 3 {
		t.Errorf("Expected 3 positions, got %d", len(layout.Positions))
	}
}

func TestComputeLayout_MalformedWeights(t *testing.T) {
	cases := []struct {
		name   string
		weight float64
	}{
		{"nan", math.NaN()},
		{"negative", -1.0},
		{"infinite", math.Inf(1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := BuildGraph([]Edge{{Source: "a", Target: "b", Weight: tc.weight}})

			_, err := ComputeLayout(g)
			var layoutErr *LayoutError
			if !errors.As(err, &layoutErr) {
				t.Fatalf("Expected LayoutError, got %v", err)
			}
		})
	}
}

func TestComputeLayout_SingleEdge(t *testing.T) {
	g := BuildGraph([]Edge{{Source: "a", Target: "b", Weight: 1.0}})

	layout, err := ComputeLayout(g)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Target distance for the maximum weight is 1/(1+0.3).
	got := euclid(layout.Positions["a"], layout.Positions["b"])
	want := 1.0 / 1.3
	if math.Abs(got-want) > 0.05 {
		t.Errorf("Expected distance near %v, got %v", want, got)
	}
}
