package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mnemoverse/mnemoscope/internal/config"
	"github.com/mnemoverse/mnemoscope/internal/dashboard"
	"github.com/mnemoverse/mnemoscope/internal/export"
	"github.com/mnemoverse/mnemoscope/internal/hebbian"
	"github.com/mnemoverse/mnemoscope/internal/observability"
	"github.com/mnemoverse/mnemoscope/internal/report"
	"github.com/mnemoverse/mnemoscope/internal/secrets"
	"github.com/mnemoverse/mnemoscope/internal/server"
	"github.com/mnemoverse/mnemoscope/internal/store"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mnemoscope",
		Short: "Monitoring dashboard for KDM experiment schemas",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/mnemoscope.yaml", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	var jsonOutput bool
	schemasCmd := &cobra.Command{
		Use:   "schemas",
		Short: "List visible experiment schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemas(configPath, jsonOutput)
		},
	}
	schemasCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	var (
		renderSchema string
		minWeight    float64
		edgeLimit    int
		format       string
		outputPath   string
	)
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render a concept graph to DOT, Mermaid, JSON or a text summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(configPath, renderSchema, minWeight, edgeLimit, format, outputPath)
		},
	}
	renderCmd.Flags().StringVar(&renderSchema, "schema", "", "Experiment schema (default from config)")
	renderCmd.Flags().Float64Var(&minWeight, "min-weight", 0, "Minimum edge weight")
	renderCmd.Flags().IntVar(&edgeLimit, "limit", 500, "Maximum edges to load")
	renderCmd.Flags().StringVar(&format, "format", "dot", "Output format: dot, mermaid, json, stats")
	renderCmd.Flags().StringVar(&outputPath, "output", "", "Output file (default stdout)")

	rootCmd.AddCommand(serveCmd, schemasCmd, renderCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig falls back to built-in defaults when the file is missing,
// matching a bare `mnemoscope serve` against a local database.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = config.Default()
	}
	return cfg
}

func setupLogger(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// openStore resolves the database URL through the secrets manager and
// opens the pool.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	sm, err := secrets.NewManager(nil)
	if err != nil {
		return nil, fmt.Errorf("secrets manager: %w", err)
	}

	url := cfg.Database.URL
	if url == "" {
		url, err = sm.DatabaseURL(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving database URL: %w", err)
		}
	}

	return store.Open(ctx, &store.Config{
		URL:            url,
		SchemaPrefix:   cfg.Database.SchemaPrefix,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
}

func runServe(configPath string) error {
	cfg := loadConfig(configPath)
	setupLogger(cfg.Log)

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "mnemoscope",
		Environment:  cfg.Tracing.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		st.Close()
		return fmt.Errorf("init tracing: %w", err)
	}

	dash := dashboard.New(&dashboard.Config{
		ListenAddr:    cfg.Server.ListenAddr,
		CacheTTL:      cfg.Server.CacheTTL,
		DefaultSchema: cfg.Database.DefaultSchema,
		MinWeight:     cfg.Graph.MinWeight,
		EdgeLimit:     cfg.Graph.EdgeLimit,
	}, st)

	graceful := server.NewGracefulServer(&server.HealthConfig{Version: "0.3.0"}, nil)
	graceful.Health.RegisterCheck("database", server.DatabaseHealthChecker(st.Ping))
	graceful.Health.RegisterCheck("schemas", server.SchemaHealthChecker(st.ListSchemas))

	for _, hook := range []server.ShutdownHook{
		server.HTTPServerShutdownHook("dashboard", dash.Server.Stop),
		server.TracingShutdownHook(tp.Shutdown),
		server.DatabaseShutdownHook(st.Close),
	} {
		graceful.RegisterHook(hook.Name, hook.Priority, hook.Fn)
	}

	if err := graceful.Start(":8080"); err != nil {
		return err
	}

	go func() {
		if err := dash.Server.Start(); err != nil {
			slog.Error("Dashboard server stopped", "error", err)
			graceful.Shutdown.Shutdown()
		}
	}()

	slog.Info("Mnemoscope running",
		"dashboard", cfg.Server.ListenAddr,
		"health", ":8080",
		"default_schema", cfg.Database.DefaultSchema)

	graceful.Wait()
	return nil
}

func runSchemas(configPath string, jsonOutput bool) error {
	cfg := loadConfig(configPath)
	setupLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	schemas, err := st.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("listing schemas: %w", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(schemas, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(schemas) == 0 {
		fmt.Println("No experiment schemas found")
		return nil
	}
	for _, s := range schemas {
		fmt.Println(s)
	}
	return nil
}

func runRender(configPath, schema string, minWeight float64, edgeLimit int, format, outputPath string) error {
	cfg := loadConfig(configPath)
	setupLogger(cfg.Log)

	if schema == "" {
		schema = cfg.Database.DefaultSchema
	}
	if schema == "" {
		return fmt.Errorf("no schema given; pass --schema or set database.default_schema")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rep := report.New(schema)

	queryStart := time.Now()
	edges, err := st.HebbianEdges(ctx, schema, minWeight, edgeLimit)
	if err != nil {
		rep.Finish([]string{err.Error()})
		return fmt.Errorf("loading edges: %w", err)
	}
	rep.CollectQuery(len(edges), minWeight, time.Since(queryStart))

	layoutStart := time.Now()
	scene, err := hebbian.Render(edges)
	if err != nil {
		rep.Finish([]string{err.Error()})
		return fmt.Errorf("rendering graph: %w", err)
	}
	rep.CollectScene(scene, time.Since(layoutStart))
	rep.Finish(nil)

	var out []byte
	switch format {
	case "dot":
		out = []byte(export.ExportDOT(scene))
	case "mermaid":
		out = []byte(export.ExportMermaid(scene))
	case "json":
		out, err = export.ExportJSON(scene)
		if err != nil {
			return fmt.Errorf("encoding scene: %w", err)
		}
	case "stats":
		out = []byte(export.FormatStats(scene))
	default:
		return fmt.Errorf("unknown format %q (want dot, mermaid, json or stats)", format)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, out, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Printf("Wrote %s scene to %s\n", format, outputPath)
	} else {
		fmt.Println(string(out))
	}

	rep.PrintSummary(os.Stderr)
	return nil
}
