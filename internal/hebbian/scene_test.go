package hebbian

import (
	"errors"
	"strings"
	"testing"
)

func TestRender_Scenario(t *testing.T) {
	scene, err := Render([]Edge{
		{Source: "x", Target: "y", Weight: 0.9, CoActivations: 5},
		{Source: "y", Target: "z", Weight: 0.1, CoActivations: 2},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if scene.Stats.NodeCount != 3 {
		t.Errorf("Expected 3 nodes, got %d", scene.Stats.NodeCount)
	}
	if scene.Stats.EdgeCount != 2 {
		t.Errorf("Expected 2 edges, got %d", scene.Stats.EdgeCount)
	}
	if scene.Stats.HubNode != "y" {
		t.Errorf("Expected hub y, got %s", scene.Stats.HubNode)
	}
	if scene.Stats.HubDegree != 2 {
		t.Errorf("Expected hub degree 2, got %d", scene.Stats.HubDegree)
	}

	if scene.Edges[0].Normalized != 1.0 {
		t.Errorf("Expected normalized 1.0 for x-y, got %v", scene.Edges[0].Normalized)
	}
	if scene.Edges[1].Normalized != 0.0 {
		t.Errorf("Expected normalized 0.0 for y-z, got %v", scene.Edges[1].Normalized)
	}
	if scene.Edges[0].Width != 2.5 {
		t.Errorf("Expected width 2.5 for x-y, got %v", scene.Edges[0].Width)
	}
	if scene.Edges[1].Width != 0.3 {
		t.Errorf("Expected width 0.3 for y-z, got %v", scene.Edges[1].Width)
	}
}

func TestRender_EmptyInput(t *testing.T) {
	_, err := Render(nil)
	if !errors.Is(err, ErrEmptyGraph) {
		t.Fatalf("Expected ErrEmptyGraph, got %v", err)
	}
}

func TestDeriveScene_Boundedness(t *testing.T) {
	scene, err := Render([]Edge{
		{Source: "a", Target: "b", Weight: 0.05},
		{Source: "b", Target: "c", Weight: 0.4},
		{Source: "c", Target: "d", Weight: 0.75},
		{Source: "d", Target: "a", Weight: 1.0},
		{Source: "a", Target: "c", Weight: 0.6},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, e := range scene.Edges {
		if e.Width < 0.3 || e.Width > 2.5 {
			t.Errorf("Edge %s-%s width %v outside [0.3, 2.5]", e.Source, e.Target, e.Width)
		}
		if e.Opacity < 0.25 || e.Opacity > 0.80 {
			t.Errorf("Edge %s-%s opacity %v outside [0.25, 0.80]", e.Source, e.Target, e.Opacity)
		}
		if e.Normalized < 0 || e.Normalized > 1 {
			t.Errorf("Edge %s-%s normalized %v outside [0, 1]", e.Source, e.Target, e.Normalized)
		}
	}
	for _, n := range scene.Nodes {
		if n.Size < 16 || n.Size > 46 {
			t.Errorf("Node %s size %v outside [16, 46]", n.ID, n.Size)
		}
	}
}

func TestDeriveScene_AllEqualWeights(t *testing.T) {
	scene, err := Render([]Edge{
		{Source: "a", Target: "b", Weight: 0.5},
		{Source: "b", Target: "c", Weight: 0.5},
		{Source: "c", Target: "a", Weight: 0.5},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, e := range scene.Edges {
		if e.Normalized != 0.5 {
			t.Errorf("Edge %s-%s: expected normalized 0.5, got %v", e.Source, e.Target, e.Normalized)
		}
	}
}

func TestDeriveScene_HubTieBreak(t *testing.T) {
	// Both apple and berry reach degree 3; apple is encountered first.
	edges := []Edge{
		{Source: "apple", Target: "berry", Weight: 0.5},
		{Source: "apple", Target: "cherry", Weight: 0.5},
		{Source: "apple", Target: "date", Weight: 0.5},
		{Source: "berry", Target: "cherry", Weight: 0.5},
		{Source: "berry", Target: "date", Weight: 0.5},
	}

	for i := 0; i < 5; i++ {
		scene, err := Render(edges)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if scene.Stats.HubNode != "apple" {
			t.Fatalf("Run %d: expected hub apple, got %s", i, scene.Stats.HubNode)
		}
	}
}

func TestDeriveScene_LabelTruncation(t *testing.T) {
	long := "rotational_symmetry_completion_pattern"
	scene, err := Render([]Edge{{Source: long, Target: "b", Weight: 0.5}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var marker *NodeMarker
	for i := range scene.Nodes {
		if scene.Nodes[i].ID == long {
			marker = &scene.Nodes[i]
		}
	}
	if marker == nil {
		t.Fatal("Marker for long concept not found")
	}

	if marker.Label != long[:20]+"..." {
		t.Errorf("Expected truncated label, got %q", marker.Label)
	}
	if marker.ID != long {
		t.Errorf("Identity must keep the full name, got %q", marker.ID)
	}
	if !strings.HasPrefix(marker.Hover, long) {
		t.Errorf("Hover text must carry the full name, got %q", marker.Hover)
	}
}

func TestDisplayLabel_ShortNameUnchanged(t *testing.T) {
	if got := displayLabel("symmetry"); got != "symmetry" {
		t.Errorf("Expected unchanged label, got %q", got)
	}
}
