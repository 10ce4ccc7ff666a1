package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func probeCode(t *testing.T, s *HealthServer, path string) (int, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return w.Code, resp
}

func TestNewHealthServer(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "0.3.0"})
	if s.version != "0.3.0" {
		t.Errorf("Expected version 0.3.0, got %s", s.version)
	}
	if s.ready {
		t.Error("Expected not ready initially")
	}
	if !s.live {
		t.Error("Expected live initially")
	}
}

func TestHealthServer_SetReadyAndLive(t *testing.T) {
	s := NewHealthServer(nil)

	s.SetReady(true)
	if !s.ready {
		t.Error("Expected ready after SetReady(true)")
	}
	s.SetReady(false)
	if s.ready {
		t.Error("Expected not ready after SetReady(false)")
	}

	s.SetLive(false)
	if s.live {
		t.Error("Expected not live after SetLive(false)")
	}
}

func TestHealthServer_HandleHealth(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "0.3.0"})
	s.RegisterCheck("database", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusHealthy, Message: "ok"}
	})

	code, resp := probeCode(t, s, "/health")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if resp.Status != HealthStatusHealthy {
		t.Errorf("Expected healthy, got %s", resp.Status)
	}
	if resp.Version != "0.3.0" {
		t.Errorf("Expected version 0.3.0, got %s", resp.Version)
	}
	if len(resp.Checks) != 1 || resp.Checks[0].Name != "database" {
		t.Errorf("Expected one named check, got %+v", resp.Checks)
	}
}

func TestHealthServer_HandleHealth_StatusFolding(t *testing.T) {
	tests := []struct {
		name       string
		status     HealthStatus
		wantCode   int
		wantStatus HealthStatus
	}{
		{"unhealthy", HealthStatusUnhealthy, http.StatusServiceUnavailable, HealthStatusUnhealthy},
		{"degraded", HealthStatusDegraded, http.StatusOK, HealthStatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewHealthServer(nil)
			s.RegisterCheck("component", func(ctx context.Context) HealthCheck {
				return HealthCheck{Status: tt.status}
			})

			code, resp := probeCode(t, s, "/health")
			if code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, code)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Expected %s, got %s", tt.wantStatus, resp.Status)
			}
		})
	}
}

func TestHealthServer_UnhealthyOutweighsDegraded(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("db", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusDegraded}
	})
	s.RegisterCheck("schemas", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusUnhealthy}
	})
	s.RegisterCheck("cache", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusHealthy}
	})

	code, resp := probeCode(t, s, "/health")
	if code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", code)
	}
	if resp.Status != HealthStatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", resp.Status)
	}
	if len(resp.Checks) != 3 {
		t.Errorf("Expected 3 checks, got %d", len(resp.Checks))
	}
}

func TestHealthServer_ReadyProbe(t *testing.T) {
	s := NewHealthServer(nil)

	if code, _ := probeCode(t, s, "/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before SetReady, got %d", code)
	}

	s.SetReady(true)
	if code, _ := probeCode(t, s, "/ready"); code != http.StatusOK {
		t.Errorf("Expected 200 after SetReady, got %d", code)
	}
}

func TestHealthServer_LiveProbe(t *testing.T) {
	s := NewHealthServer(nil)

	if code, _ := probeCode(t, s, "/live"); code != http.StatusOK {
		t.Errorf("Expected 200 while live, got %d", code)
	}

	s.SetLive(false)
	if code, _ := probeCode(t, s, "/live"); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after SetLive(false), got %d", code)
	}
}

func TestHealthServer_KubernetesAliases(t *testing.T) {
	s := NewHealthServer(nil)
	s.SetReady(true)

	for _, path := range []string{"/healthz", "/readyz", "/livez"} {
		if code, _ := probeCode(t, s, path); code != http.StatusOK {
			t.Errorf("Expected 200 for %s, got %d", path, code)
		}
	}
}

func TestHealthServer_ContentType(t *testing.T) {
	s := NewHealthServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}
}

func TestDatabaseHealthChecker(t *testing.T) {
	healthy := DatabaseHealthChecker(func(ctx context.Context) error { return nil })
	if got := healthy(context.Background()); got.Status != HealthStatusHealthy {
		t.Errorf("Expected healthy, got %s", got.Status)
	}

	broken := DatabaseHealthChecker(func(ctx context.Context) error {
		return errors.New("connection timeout")
	})
	if got := broken(context.Background()); got.Status != HealthStatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", got.Status)
	}
}

func TestSchemaHealthChecker_Healthy(t *testing.T) {
	checker := SchemaHealthChecker(func(ctx context.Context) ([]string, error) {
		return []string{"kdm_v02", "kdm_v03"}, nil
	})

	result := checker(context.Background())
	if result.Status != HealthStatusHealthy {
		t.Fatalf("Expected healthy, got %s", result.Status)
	}
	if result.Details["first"] != "kdm_v02" {
		t.Errorf("Expected first schema detail, got %v", result.Details)
	}
}

func TestSchemaHealthChecker_NoSchemas(t *testing.T) {
	checker := SchemaHealthChecker(func(ctx context.Context) ([]string, error) {
		return nil, nil
	})

	if got := checker(context.Background()); got.Status != HealthStatusDegraded {
		t.Errorf("Expected degraded, got %s", got.Status)
	}
}

func TestSchemaHealthChecker_ListFails(t *testing.T) {
	checker := SchemaHealthChecker(func(ctx context.Context) ([]string, error) {
		return nil, errors.New("connection refused")
	})

	if got := checker(context.Background()); got.Status != HealthStatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", got.Status)
	}
}
