// Package store provides read-only Postgres access to KDM experiment
// schemas. Every experiment lives in its own schema (kdm_*) with the same
// table set; the dashboard only ever reads.
//
// Schema names cannot be bound as query parameters in Postgres, so they
// are validated against a strict identifier pattern and the configured
// prefix before being interpolated as quoted identifiers. All value
// filters go through bind parameters.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Tables that make up one experiment schema.
const (
	TableStateAtoms     = "state_atoms"
	TableProcessAtoms   = "process_atoms"
	TableHebbianEdges   = "hebbian_edges"
	TableFeedbackEvents = "feedback_events"
	TableAdalineState   = "adaline_state"
	TableExperimentRuns = "experiment_runs"
)

// SchemaTables lists every table the dashboard inspects, in display order.
var SchemaTables = []string{
	TableStateAtoms,
	TableProcessAtoms,
	TableHebbianEdges,
	TableFeedbackEvents,
	TableAdalineState,
	TableExperimentRuns,
}

// Config holds database connection settings.
type Config struct {
	// URL is the Postgres connection string.
	URL string
	// SchemaPrefix restricts which schemas are visible (default "kdm").
	SchemaPrefix string
	// MaxConns caps the pool size.
	MaxConns int32
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SchemaPrefix:   "kdm",
		MaxConns:       5,
		ConnectTimeout: 10 * time.Second,
	}
}

// Store is a pgx-pool-backed repository over experiment schemas.
type Store struct {
	pool   *pgxpool.Pool
	prefix string
}

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("store: database URL is empty")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	prefix := cfg.SchemaPrefix
	if prefix == "" {
		prefix = "kdm"
	}
	return &Store{pool: pool, prefix: prefix}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ListSchemas returns experiment schemas matching the configured prefix,
// sorted alphabetically.
func (s *Store) ListSchemas(ctx context.Context) (schemas []string, err error) {
	ctx, finish := s.instrument(ctx, "list_schemas", "")
	defer func() { finish(err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name LIKE $1 || '%'
		ORDER BY schema_name`, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning schema name: %w", err)
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

// TableExists reports whether a table is present in the given schema.
func (s *Store) TableExists(ctx context.Context, schema, table string) (exists bool, err error) {
	if err = s.checkSchema(schema); err != nil {
		return false, err
	}
	ctx, finish := s.instrument(ctx, "table_exists", schema)
	defer func() { finish(err) }()

	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`, schema, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking table %s.%s: %w", schema, table, err)
	}
	return exists, nil
}

var schemaNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// checkSchema rejects schema names that are not plain lowercase
// identifiers carrying the configured prefix. Anything else never reaches
// a query string.
func (s *Store) checkSchema(schema string) error {
	if !schemaNamePattern.MatchString(schema) {
		return fmt.Errorf("store: %w: %q", ErrInvalidSchema, schema)
	}
	if !strings.HasPrefix(schema, s.prefix) {
		return fmt.Errorf("store: %w: %q lacks prefix %q", ErrInvalidSchema, schema, s.prefix)
	}
	return nil
}

// quoteIdent wraps an already-validated identifier in double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// rel builds a schema-qualified relation name for a validated schema and a
// table from the fixed SchemaTables set.
func rel(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}
