// Package server provides the operational HTTP surface of the
// dashboard process: Kubernetes-style health probes and ordered
// graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is the result of probing one component.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse aggregates all component checks.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker probes a single component.
type HealthChecker func(ctx context.Context) HealthCheck

// namedCheck pairs a checker with its registration name so /health
// reports components in registration order.
type namedCheck struct {
	name    string
	checker HealthChecker
}

// HealthServer serves the probe endpoints.
type HealthServer struct {
	mu           sync.RWMutex
	checks       []namedCheck
	version      string
	ready        bool
	live         bool
	shutdownChan chan struct{}
}

// HealthConfig configures the health server.
type HealthConfig struct {
	Version string
	Addr    string // default ":8080"
}

// NewHealthServer creates a health server. It starts live but not
// ready; the process flips readiness once its listeners are up.
func NewHealthServer(config *HealthConfig) *HealthServer {
	s := &HealthServer{
		live:         true,
		shutdownChan: make(chan struct{}),
	}
	if config != nil {
		s.version = config.Version
	}
	return s
}

// RegisterCheck adds a component check under the given name.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, namedCheck{name: name, checker: checker})
}

// SetReady flips the readiness probe.
func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// SetLive flips the liveness probe.
func (s *HealthServer) SetLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

// Handler returns the probe routing tree. /healthz, /readyz and
// /livez are aliases for the unsuffixed paths.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ready", s.flagProbe(func() bool { return s.ready }))
	mux.HandleFunc("/readyz", s.flagProbe(func() bool { return s.ready }))
	mux.HandleFunc("/live", s.flagProbe(func() bool { return s.live }))
	mux.HandleFunc("/livez", s.flagProbe(func() bool { return s.live }))
	return mux
}

// ListenAndServe serves probes until Shutdown is called.
func (s *HealthServer) ListenAndServe(addr string) error {
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-s.shutdownChan
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	return srv.ListenAndServe()
}

// Shutdown stops the probe listener.
func (s *HealthServer) Shutdown() {
	close(s.shutdownChan)
}

// handleHealth runs every registered check and folds the results into
// an overall status. Any unhealthy component makes the whole response
// unhealthy (503); degraded components downgrade a healthy response
// but keep the 200.
func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s.mu.RLock()
	checks := make([]namedCheck, len(s.checks))
	copy(checks, s.checks)
	version := s.version
	s.mu.RUnlock()

	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
	}

	for _, nc := range checks {
		result := nc.checker(ctx)
		result.Name = nc.name
		resp.Checks = append(resp.Checks, result)

		switch result.Status {
		case HealthStatusUnhealthy:
			resp.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if resp.Status == HealthStatusHealthy {
				resp.Status = HealthStatusDegraded
			}
		}
	}

	code := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

// flagProbe builds a handler for a boolean probe (ready/live).
func (s *HealthServer) flagProbe(flag func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		ok := flag()
		s.mu.RUnlock()

		resp := HealthResponse{
			Status:    HealthStatusHealthy,
			Timestamp: time.Now().UTC(),
		}
		code := http.StatusOK
		if !ok {
			resp.Status = HealthStatusUnhealthy
			code = http.StatusServiceUnavailable
		}
		s.writeJSON(w, code, resp)
	}
}

func (s *HealthServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// DatabaseHealthChecker probes database connectivity through the
// given ping function.
func DatabaseHealthChecker(checkFn func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := checkFn(ctx); err != nil {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: "Database connection failed: " + err.Error(),
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "Database connection OK",
		}
	}
}

// SchemaHealthChecker reports whether any experiment schemas are
// visible. No schemas is degraded, not unhealthy: the dashboard still
// serves, with nothing to show.
func SchemaHealthChecker(listFn func(ctx context.Context) ([]string, error)) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		schemas, err := listFn(ctx)
		if err != nil {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: "Schema listing failed: " + err.Error(),
			}
		}
		if len(schemas) == 0 {
			return HealthCheck{
				Status:  HealthStatusDegraded,
				Message: "No experiment schemas found",
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: fmt.Sprintf("%d experiment schemas visible", len(schemas)),
			Details: map[string]string{"first": schemas[0]},
		}
	}
}
