package dashboard

import (
	"time"

	"github.com/mnemoverse/mnemoscope/internal/hebbian"
	"github.com/mnemoverse/mnemoscope/internal/store"
)

// SchemaList is the payload of GET /api/schemas.
type SchemaList struct {
	Schemas []string `json:"schemas"`
	Default string   `json:"default,omitempty"`
}

// OverviewResponse is the payload of GET /api/overview.
type OverviewResponse struct {
	Schema  string               `json:"schema"`
	Counts  *store.Overview      `json:"counts"`
	LastRun *store.ExperimentRun `json:"last_run,omitempty"`
	Recent  []store.ProcessAtom  `json:"recent_activity,omitempty"`
}

// LearningCurveResponse is the payload of GET /api/learning-curve.
type LearningCurveResponse struct {
	Schema   string                 `json:"schema"`
	Points   []store.LearningPoint  `json:"points"`
	Timeline []store.TimelineBucket `json:"timeline,omitempty"`
	Runs     []store.ExperimentRun  `json:"runs,omitempty"`
}

// GraphResponse is the payload of GET /api/graph. Exactly one of Scene,
// Empty or Degraded describes the outcome: a rendered scene, a graph
// with nothing to draw, or stats-only output after a layout failure.
type GraphResponse struct {
	Schema   string            `json:"schema"`
	Scene    *hebbian.Scene    `json:"scene,omitempty"`
	Stats    *store.GraphStats `json:"stats,omitempty"`
	Empty    bool              `json:"empty,omitempty"`
	Degraded bool              `json:"degraded,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// ConnectionsResponse is the payload of GET /api/connections.
type ConnectionsResponse struct {
	Schema string         `json:"schema"`
	Edges  []hebbian.Edge `json:"edges"`
}

// AdminTablesResponse is the payload of GET /api/admin/tables.
type AdminTablesResponse struct {
	Schema string             `json:"schema"`
	Tables []store.TableCount `json:"tables"`
}

// SchemaComparison lines up table presence across two schemas.
type SchemaComparison struct {
	Table   string `json:"table"`
	InLeft  bool   `json:"in_left"`
	InRight bool   `json:"in_right"`
}

// CompareResponse is the payload of GET /api/admin/compare.
type CompareResponse struct {
	Left   string             `json:"left"`
	Right  string             `json:"right"`
	Tables []SchemaComparison `json:"tables"`
}

// HealthResponse is the payload of GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Time     string `json:"time"`
}

// ErrorResponse carries a machine-readable error plus operator guidance.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// Event is a server-sent event pushed to connected dashboards.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Schema    string      `json:"schema,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}
