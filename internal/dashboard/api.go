package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnemoverse/mnemoscope/internal/hebbian"
	"github.com/mnemoverse/mnemoscope/internal/observability"
	"github.com/mnemoverse/mnemoscope/internal/store"
)

//go:embed static
var staticFS embed.FS

// Repository is the read side the dashboard serves from. *store.Store
// implements it; tests substitute a fake.
type Repository interface {
	ListSchemas(ctx context.Context) ([]string, error)
	Overview(ctx context.Context, schema string) (*store.Overview, error)
	LastRun(ctx context.Context, schema string) (*store.ExperimentRun, error)
	ListRuns(ctx context.Context, schema string, limit int) ([]store.ExperimentRun, error)
	RecentProcessAtoms(ctx context.Context, schema string, limit int) ([]store.ProcessAtom, error)
	LearningCurve(ctx context.Context, schema string) ([]store.LearningPoint, error)
	TaskTimeline(ctx context.Context, schema string) ([]store.TimelineBucket, error)
	MemoryState(ctx context.Context, schema string) (*store.MemoryState, error)
	GraphStats(ctx context.Context, schema string) (*store.GraphStats, error)
	HebbianEdges(ctx context.Context, schema string, minWeight float64, limit int) ([]hebbian.Edge, error)
	TopConnections(ctx context.Context, schema string, limit int) ([]hebbian.Edge, error)
	TableCounts(ctx context.Context, schema string) ([]store.TableCount, error)
	TableExists(ctx context.Context, schema, table string) (bool, error)
	Ping(ctx context.Context) error
}

// Config holds dashboard server configuration.
type Config struct {
	ListenAddr    string        // e.g. ":9090"
	CacheTTL      time.Duration // zero disables the query cache
	DefaultSchema string
	MinWeight     float64 // default weight filter for /api/graph
	EdgeLimit     int     // default row cap for /api/graph
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":9090",
		CacheTTL:   5 * time.Minute,
		MinWeight:  0.0,
		EdgeLimit:  500,
	}
}

// Server is the dashboard HTTP server.
type Server struct {
	config  *Config
	repo    Repository
	cache   *Cache
	hub     *Hub
	emitter *Emitter
	server  *http.Server
}

// NewServer creates a new dashboard server.
func NewServer(config *Config, repo Repository, cache *Cache, hub *Hub) *Server {
	s := &Server{
		config:  config,
		repo:    repo,
		cache:   cache,
		hub:     hub,
		emitter: NewEmitter(hub),
	}

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/schemas", s.handleSchemas)
	mux.HandleFunc("/api/overview", s.handleOverview)
	mux.HandleFunc("/api/learning-curve", s.handleLearningCurve)
	mux.HandleFunc("/api/memory-state", s.handleMemoryState)
	mux.HandleFunc("/api/graph", s.handleGraph)
	mux.HandleFunc("/api/connections", s.handleConnections)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/admin/tables", s.handleAdminTables)
	mux.HandleFunc("/api/admin/compare", s.handleAdminCompare)
	mux.HandleFunc("/api/cache/clear", s.handleCacheClear)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/events", s.handleSSE)

	// Prometheus scrape endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Static file server
	mux.HandleFunc("/", s.handleStatic)

	// Wrap with CORS and logging middleware
	handler := corsMiddleware(loggingMiddleware(mux))

	s.server = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the routing tree, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving the dashboard.
func (s *Server) Start() error {
	slog.Info("Starting dashboard server", "addr", s.config.ListenAddr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("Stopping dashboard server")
	return s.server.Shutdown(ctx)
}

// schemaParam resolves the schema query parameter, falling back to the
// configured default.
func (s *Server) schemaParam(r *http.Request) (string, error) {
	schema := r.URL.Query().Get("schema")
	if schema == "" {
		schema = s.config.DefaultSchema
	}
	if schema == "" {
		return "", fmt.Errorf("%w: schema parameter required", store.ErrInvalidSchema)
	}
	return schema, nil
}

func intParam(r *http.Request, name string, def int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func floatParam(r *http.Request, name string, def float64) float64 {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			return v
		}
	}
	return def
}

// handleSchemas handles GET /api/schemas
func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := s.cache.Get("schemas", func() (interface{}, error) {
		schemas, err := s.repo.ListSchemas(r.Context())
		if err != nil {
			return nil, err
		}
		return &SchemaList{Schemas: schemas, Default: s.config.DefaultSchema}, nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, payload)
}

// handleOverview handles GET /api/overview
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	schema, err := s.schemaParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	payload, err := s.cache.Get("overview:"+schema, func() (interface{}, error) {
		ctx, span := observability.Tracer().Start(r.Context(), "dashboard.overview")
		defer span.End()

		counts, err := s.repo.Overview(ctx, schema)
		if err != nil {
			return nil, err
		}
		lastRun, err := s.repo.LastRun(ctx, schema)
		if err != nil {
			return nil, err
		}
		recent, err := s.repo.RecentProcessAtoms(ctx, schema, 10)
		if err != nil {
			return nil, err
		}
		// Fresh data was loaded (cache miss), so connected pages refetch.
		s.emitter.SchemaRefreshed(schema)
		return &OverviewResponse{
			Schema:  schema,
			Counts:  counts,
			LastRun: lastRun,
			Recent:  recent,
		}, nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, payload)
}

// handleLearningCurve handles GET /api/learning-curve
func (s *Server) handleLearningCurve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	schema, err := s.schemaParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	payload, err := s.cache.Get("learning-curve:"+schema, func() (interface{}, error) {
		ctx, span := observability.Tracer().Start(r.Context(), "dashboard.learning_curve")
		defer span.End()

		points, err := s.repo.LearningCurve(ctx, schema)
		if err != nil {
			return nil, err
		}
		timeline, err := s.repo.TaskTimeline(ctx, schema)
		if err != nil {
			return nil, err
		}
		runs, err := s.repo.ListRuns(ctx, schema, 20)
		if err != nil {
			return nil, err
		}
		return &LearningCurveResponse{
			Schema:   schema,
			Points:   points,
			Timeline: timeline,
			Runs:     runs,
		}, nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, payload)
}

// handleMemoryState handles GET /api/memory-state
func (s *Server) handleMemoryState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	schema, err := s.schemaParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	payload, err := s.cache.Get("memory-state:"+schema, func() (interface{}, error) {
		ctx, span := observability.Tracer().Start(r.Context(), "dashboard.memory_state")
		defer span.End()
		return s.repo.MemoryState(ctx, schema)
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, payload)
}

// handleGraph handles GET /api/graph. The response carries a rendered
// scene on success, an empty marker when the schema has no drawable
// edges, or stats-only degraded output when layout fails.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	schema, err := s.schemaParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	minWeight := floatParam(r, "min_weight", s.config.MinWeight)
	limit := intParam(r, "limit", s.config.EdgeLimit)

	key := fmt.Sprintf("graph:%s:%g:%d", schema, minWeight, limit)
	payload, err := s.cache.Get(key, func() (interface{}, error) {
		ctx, span := observability.Tracer().Start(r.Context(), "dashboard.graph")
		defer span.End()

		stats, err := s.repo.GraphStats(ctx, schema)
		if err != nil {
			return nil, err
		}
		edges, err := s.repo.HebbianEdges(ctx, schema, minWeight, limit)
		if err != nil {
			return nil, err
		}

		g := hebbian.BuildGraph(edges)
		if g.NodeCount() == 0 {
			return &GraphResponse{
				Schema:  schema,
				Stats:   stats,
				Empty:   true,
				Message: "no connections match the current filter",
			}, nil
		}

		lctx, layoutSpan := observability.StartLayoutSpan(ctx, g.NodeCount(), g.EdgeCount())
		start := time.Now()
		layout, err := hebbian.ComputeLayout(g)
		if err != nil {
			observability.RecordError(layoutSpan, err)
			layoutSpan.End()
			var layoutErr *hebbian.LayoutError
			if errors.As(err, &layoutErr) {
				slog.Warn("Graph layout failed, serving stats only",
					"schema", schema, "stage", layoutErr.Stage, "error", layoutErr.Err)
				return &GraphResponse{
					Schema:   schema,
					Stats:    stats,
					Degraded: true,
					Message:  "layout failed, showing statistics only",
				}, nil
			}
			return nil, err
		}
		elapsed := time.Since(start)
		observability.RecordLayoutResult(layoutSpan, string(layout.Method), elapsed)
		layoutSpan.End()

		_, renderSpan := observability.StartRenderSpan(lctx)
		scene := hebbian.DeriveScene(g, layout)
		renderSpan.End()

		observability.ObserveLayout(string(layout.Method), elapsed)
		s.emitter.GraphRendered(schema, string(layout.Method))

		return &GraphResponse{Schema: schema, Scene: scene, Stats: stats}, nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, payload)
}

// handleConnections handles GET /api/connections
func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	schema, err := s.schemaParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	limit := intParam(r, "limit", 20)

	key := fmt.Sprintf("connections:%s:%d", schema, limit)
	payload, err := s.cache.Get(key, func() (interface{}, error) {
		edges, err := s.repo.TopConnections(r.Context(), schema, limit)
		if err != nil {
			return nil, err
		}
		return &ConnectionsResponse{Schema: schema, Edges: edges}, nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, payload)
}

// handleRuns handles GET /api/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	schema, err := s.schemaParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	limit := intParam(r, "limit", 20)

	key := fmt.Sprintf("runs:%s:%d", schema, limit)
	payload, err := s.cache.Get(key, func() (interface{}, error) {
		return s.repo.ListRuns(r.Context(), schema, limit)
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, payload)
}

// handleAdminTables handles GET /api/admin/tables
func (s *Server) handleAdminTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	schema, err := s.schemaParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	// Admin inspection always reads live state.
	tables, err := s.repo.TableCounts(r.Context(), schema)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, &AdminTablesResponse{Schema: schema, Tables: tables})
}

// handleAdminCompare handles GET /api/admin/compare?left=...&right=...
func (s *Server) handleAdminCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	left := r.URL.Query().Get("left")
	right := r.URL.Query().Get("right")
	if left == "" || right == "" {
		respondJSONStatus(w, http.StatusBadRequest,
			&ErrorResponse{Error: "left and right schema parameters required"})
		return
	}

	resp := &CompareResponse{Left: left, Right: right}
	for _, table := range store.SchemaTables {
		inLeft, err := s.repo.TableExists(r.Context(), left, table)
		if err != nil {
			respondError(w, err)
			return
		}
		inRight, err := s.repo.TableExists(r.Context(), right, table)
		if err != nil {
			respondError(w, err)
			return
		}
		resp.Tables = append(resp.Tables, SchemaComparison{
			Table:   table,
			InLeft:  inLeft,
			InRight: inRight,
		})
	}
	respondJSON(w, resp)
}

// handleCacheClear handles POST /api/cache/clear
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := s.cache.Clear()
	s.emitter.CacheCleared(entries)
	slog.Info("Query cache cleared", "entries", entries)
	respondJSON(w, map[string]int{"cleared": entries})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := &HealthResponse{
		Status:   "ok",
		Database: "ok",
		Time:     time.Now().Format(time.RFC3339),
	}
	if err := s.repo.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		respondJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondJSON(w, resp)
}

// handleSSE handles GET /api/events (Server-Sent Events)
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.hub.Subscribe()
	observability.SSEConnected()
	defer func() {
		s.hub.Unsubscribe(events)
		observability.SSEDisconnected()
	}()

	slog.Info("SSE client connected")

	hello, _ := json.Marshal(&Event{Type: "connected", Timestamp: time.Now()})
	fmt.Fprintf(w, "data: %s\n\n", hello)
	flusher.Flush()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SSE client disconnected")
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case data := <-events:
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleStatic serves embedded static files
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	staticFiles, err := fs.Sub(staticFS, "static")
	if err != nil {
		slog.Error("Failed to access static files", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.FileServer(http.FS(staticFiles)).ServeHTTP(w, r)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// respondJSONStatus writes a JSON response with an explicit status code.
func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError maps store errors onto HTTP status codes with guidance.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidSchema):
		respondJSONStatus(w, http.StatusBadRequest, &ErrorResponse{
			Error: err.Error(),
			Hint:  "schema names are lowercase identifiers carrying the configured prefix",
		})
	case errors.Is(err, store.ErrMissingTable):
		respondJSONStatus(w, http.StatusNotFound, &ErrorResponse{
			Error: err.Error(),
			Hint:  "schema is missing expected tables; run the migration scripts first",
		})
	default:
		slog.Error("Request failed", "error", err)
		respondJSONStatus(w, http.StatusInternalServerError, &ErrorResponse{
			Error: "internal server error",
		})
	}
}

// corsMiddleware adds CORS headers for local development
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and records their latency.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		observability.ObserveRequest(r.URL.Path, elapsed)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", elapsed,
		)
	})
}
