package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mnemoverse/mnemoscope/internal/hebbian"
)

func renderedScene(t *testing.T) *hebbian.Scene {
	t.Helper()
	scene, err := hebbian.Render([]hebbian.Edge{
		{Source: "x", Target: "y", Weight: 0.9},
		{Source: "y", Target: "z", Weight: 0.1},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return scene
}

func TestRenderReport_Collect(t *testing.T) {
	r := New("kdm_v03")
	r.CollectQuery(2, 0.05, 12*time.Millisecond)
	r.CollectScene(renderedScene(t), 30*time.Millisecond)
	r.Finish(nil)

	if r.Schema != "kdm_v03" {
		t.Errorf("Expected schema kdm_v03, got %s", r.Schema)
	}
	if r.Query.EdgesLoaded != 2 {
		t.Errorf("Expected 2 edges loaded, got %d", r.Query.EdgesLoaded)
	}
	if r.Scene.Nodes != 3 {
		t.Errorf("Expected 3 nodes, got %d", r.Scene.Nodes)
	}
	if r.Scene.Hub != "y" {
		t.Errorf("Expected hub y, got %s", r.Scene.Hub)
	}
	if r.Duration <= 0 {
		t.Error("Expected positive duration after Finish")
	}
}

func TestRenderReport_FallbackFlag(t *testing.T) {
	r := New("kdm_v03")
	scene := renderedScene(t)
	r.CollectScene(scene, time.Millisecond)

	want := scene.Layout == hebbian.MethodSpring
	if r.Layout.Fallback != want {
		t.Errorf("Expected fallback %v for method %s", want, scene.Layout)
	}
}

func TestRenderReport_PrintSummary(t *testing.T) {
	r := New("kdm_v03")
	r.CollectQuery(2, 0, time.Millisecond)
	r.CollectScene(renderedScene(t), time.Millisecond)
	r.Finish([]string{"one table missing"})

	var buf bytes.Buffer
	r.PrintSummary(&buf)
	out := buf.String()

	if !strings.Contains(out, "MNEMOSCOPE RENDER REPORT") {
		t.Error("Expected report header")
	}
	if !strings.Contains(out, "kdm_v03") {
		t.Error("Expected schema in summary")
	}
	if !strings.Contains(out, "Hub:         y (2 connections)") {
		t.Errorf("Expected hub line, got:\n%s", out)
	}
	if !strings.Contains(out, "one table missing") {
		t.Error("Expected error section")
	}
}

func TestRenderReport_JSON(t *testing.T) {
	r := New("kdm_v03")
	r.CollectScene(renderedScene(t), time.Millisecond)
	r.Finish(nil)

	data, err := r.JSON()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded RenderReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}
	if decoded.Scene.Nodes != 3 {
		t.Errorf("Expected 3 nodes after round trip, got %d", decoded.Scene.Nodes)
	}
}
