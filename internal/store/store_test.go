package store

import (
	"context"
	"errors"
	"testing"
)

func TestCheckSchema_Valid(t *testing.T) {
	s := &Store{prefix: "kdm"}

	valid := []string{"kdm", "kdm_v03", "kdm_experiment_2026"}
	for _, name := range valid {
		if err := s.checkSchema(name); err != nil {
			t.Errorf("Expected %q to pass validation, got %v", name, err)
		}
	}
}

func TestCheckSchema_Invalid(t *testing.T) {
	s := &Store{prefix: "kdm"}

	invalid := []string{
		"",
		"public",
		"Kdm_v03",
		"kdm_v03; DROP TABLE state_atoms",
		"kdm_v03\"",
		"kdm v03",
		"kdm_v03'--",
		"1kdm",
	}
	for _, name := range invalid {
		err := s.checkSchema(name)
		if err == nil {
			t.Errorf("Expected %q to fail validation", name)
			continue
		}
		if !errors.Is(err, ErrInvalidSchema) {
			t.Errorf("Expected ErrInvalidSchema for %q, got %v", name, err)
		}
	}
}

func TestCheckSchema_PrefixMismatch(t *testing.T) {
	s := &Store{prefix: "kdm"}

	if err := s.checkSchema("other_schema"); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("Expected ErrInvalidSchema for foreign prefix, got %v", err)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("kdm_v03"); got != `"kdm_v03"` {
		t.Errorf("Expected quoted identifier, got %s", got)
	}
	// Embedded quotes are doubled, never closing the identifier early.
	if got := quoteIdent(`kdm"bad`); got != `"kdm""bad"` {
		t.Errorf("Expected escaped quotes, got %s", got)
	}
}

func TestRel(t *testing.T) {
	if got := rel("kdm_v03", TableHebbianEdges); got != `"kdm_v03"."hebbian_edges"` {
		t.Errorf("Expected qualified relation, got %s", got)
	}
}

func TestKnownTable(t *testing.T) {
	if !knownTable(TableStateAtoms) {
		t.Error("Expected state_atoms to be known")
	}
	if knownTable("pg_authid") {
		t.Error("Expected pg_authid to be rejected")
	}
}

func TestInstrument(t *testing.T) {
	s := &Store{prefix: "kdm"}

	ctx, finish := s.instrument(context.Background(), "graph_stats", "kdm_v03")
	if ctx == nil {
		t.Fatal("Expected a derived context")
	}
	// Success and failure outcomes both settle without a collector.
	finish(nil)

	_, finish = s.instrument(context.Background(), "count_rows", "kdm_v03")
	finish(errors.New("connection reset"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SchemaPrefix != "kdm" {
		t.Errorf("Expected kdm prefix, got %s", cfg.SchemaPrefix)
	}
	if cfg.MaxConns != 5 {
		t.Errorf("Expected 5 max conns, got %d", cfg.MaxConns)
	}
}
