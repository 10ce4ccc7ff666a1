package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgtype"

	"github.com/mnemoverse/mnemoscope/internal/hebbian"
	"github.com/mnemoverse/mnemoscope/internal/observability"
)

// instrument opens a query span and returns a finish func that records
// the outcome on the span and feeds the query latency histogram.
func (s *Store) instrument(ctx context.Context, operation, schema string) (context.Context, func(error)) {
	ctx, span := observability.StartQuerySpan(ctx, operation, schema)
	start := time.Now()
	return ctx, func(err error) {
		observability.RecordError(span, err)
		span.End()
		observability.ObserveQuery(operation, time.Since(start))
	}
}

// CountRows counts rows of one of the known experiment tables.
func (s *Store) CountRows(ctx context.Context, schema, table string) (count int64, err error) {
	if err = s.checkSchema(schema); err != nil {
		return 0, err
	}
	if !knownTable(table) {
		return 0, fmt.Errorf("store: unknown table %q", table)
	}
	ctx, finish := s.instrument(ctx, "count_rows", schema)
	defer func() { finish(err) }()

	if err = s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+rel(schema, table)).Scan(&count); err != nil {
		return 0, classify(err)
	}
	return count, nil
}

// Overview returns the headline counts for a schema.
func (s *Store) Overview(ctx context.Context, schema string) (*Overview, error) {
	var (
		o   Overview
		err error
	)
	if o.StateAtoms, err = s.CountRows(ctx, schema, TableStateAtoms); err != nil {
		return nil, err
	}
	if o.ProcessAtoms, err = s.CountRows(ctx, schema, TableProcessAtoms); err != nil {
		return nil, err
	}
	if o.HebbianEdges, err = s.CountRows(ctx, schema, TableHebbianEdges); err != nil {
		return nil, err
	}
	if o.FeedbackEvents, err = s.CountRows(ctx, schema, TableFeedbackEvents); err != nil {
		return nil, err
	}
	return &o, nil
}

// GraphStats returns concept count, edge count and average edge weight.
func (s *Store) GraphStats(ctx context.Context, schema string) (stats *GraphStats, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "graph_stats", schema)
	defer func() { finish(err) }()

	stats = &GraphStats{}
	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM "+rel(schema, TableStateAtoms)).Scan(&stats.Concepts)
	if err != nil {
		return nil, classify(err)
	}

	var avg pgtype.Float8
	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*), AVG(weight) FROM "+rel(schema, TableHebbianEdges)).
		Scan(&stats.Edges, &avg)
	if err != nil {
		return nil, classify(err)
	}
	stats.AvgWeight = float8Ptr(avg)
	return stats, nil
}

// HebbianEdges loads the association edges joined to concept names,
// strongest first. The minimum-weight filter and the row cap are bind
// parameters; the renderer receives these rows untouched.
func (s *Store) HebbianEdges(ctx context.Context, schema string, minWeight float64, limit int) (edges []hebbian.Edge, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "hebbian_edges", schema)
	defer func() { finish(err) }()

	q := `
		SELECT s.concept, t.concept, e.weight, e.co_activation_count
		FROM ` + rel(schema, TableHebbianEdges) + ` e
		JOIN ` + rel(schema, TableStateAtoms) + ` s ON e.source_id = s.id
		JOIN ` + rel(schema, TableStateAtoms) + ` t ON e.target_id = t.id
		WHERE e.weight >= $1
		ORDER BY e.weight DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, q, minWeight, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e  hebbian.Edge
			co pgtype.Int8
		)
		if err := rows.Scan(&e.Source, &e.Target, &e.Weight, &co); err != nil {
			return nil, fmt.Errorf("scanning hebbian edge: %w", err)
		}
		if co.Status == pgtype.Present {
			e.CoActivations = int(co.Int)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// TopConnections returns the strongest edges for the table view.
func (s *Store) TopConnections(ctx context.Context, schema string, limit int) ([]hebbian.Edge, error) {
	return s.HebbianEdges(ctx, schema, 0, limit)
}

const runColumns = `run_name, model, mode, tasks_total, tasks_correct, accuracy, started_at, completed_at`

// LastRun returns the most recently started experiment run, or nil when
// the schema has none.
func (s *Store) LastRun(ctx context.Context, schema string) (*ExperimentRun, error) {
	runs, err := s.ListRuns(ctx, schema, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns experiment runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, schema string, limit int) (runs []ExperimentRun, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "list_runs", schema)
	defer func() { finish(err) }()

	q := "SELECT " + runColumns + " FROM " + rel(schema, TableExperimentRuns) +
		" ORDER BY started_at DESC LIMIT $1"
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                  ExperimentRun
			name, model, mode  pgtype.Text
			total, correct     pgtype.Int8
			accuracy           pgtype.Float8
			started, completed pgtype.Timestamptz
		)
		if err := rows.Scan(&name, &model, &mode, &total, &correct, &accuracy, &started, &completed); err != nil {
			return nil, fmt.Errorf("scanning experiment run: %w", err)
		}
		r.RunName = textOrEmpty(name)
		r.Model = textOrEmpty(model)
		r.Mode = textOrEmpty(mode)
		r.TasksTotal = int8OrZero(total)
		r.TasksCorrect = int8OrZero(correct)
		r.Accuracy = float8Ptr(accuracy)
		r.StartedAt = timePtr(started)
		r.CompletedAt = timePtr(completed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LearningCurve computes the cumulative accuracy series over all task
// attempts, ordered by creation time. Memory size equals the number of
// attempts stored so far, so the curve reads as accuracy vs memory.
func (s *Store) LearningCurve(ctx context.Context, schema string) (points []LearningPoint, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "learning_curve", schema)
	defer func() { finish(err) }()

	q := `
		WITH ordered_tasks AS (
			SELECT is_successful,
			       ROW_NUMBER() OVER (ORDER BY created_at) AS task_num
			FROM ` + rel(schema, TableProcessAtoms) + `
			WHERE task_id IS NOT NULL
		)
		SELECT task_num,
		       task_num AS memory_size,
		       (SUM(CASE WHEN is_successful THEN 1 ELSE 0 END)
		            OVER (ORDER BY task_num))::float / task_num * 100 AS accuracy
		FROM ordered_tasks
		ORDER BY task_num`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var p LearningPoint
		if err := rows.Scan(&p.TaskNum, &p.MemorySize, &p.Accuracy); err != nil {
			return nil, fmt.Errorf("scanning learning point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// TaskTimeline buckets task attempts per day.
func (s *Store) TaskTimeline(ctx context.Context, schema string) (buckets []TimelineBucket, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "task_timeline", schema)
	defer func() { finish(err) }()

	q := `
		SELECT DATE(created_at) AS date,
		       COUNT(*) AS total,
		       SUM(CASE WHEN is_successful THEN 1 ELSE 0 END) AS correct
		FROM ` + rel(schema, TableProcessAtoms) + `
		WHERE task_id IS NOT NULL
		GROUP BY DATE(created_at)
		ORDER BY date`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var b TimelineBucket
		if err := rows.Scan(&b.Date, &b.Total, &b.Correct); err != nil {
			return nil, fmt.Errorf("scanning timeline bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// AdalineStates returns the latest utility-learner snapshots.
func (s *Store) AdalineStates(ctx context.Context, schema string, limit int) (states []AdalineState, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "adaline_states", schema)
	defer func() { finish(err) }()

	q := `
		SELECT name, update_count, avg_error, learning_rate, updated_at
		FROM ` + rel(schema, TableAdalineState) + `
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a       AdalineState
			name    pgtype.Text
			count   pgtype.Int8
			avgErr  pgtype.Float8
			rate    pgtype.Float8
			updated pgtype.Timestamptz
		)
		if err := rows.Scan(&name, &count, &avgErr, &rate, &updated); err != nil {
			return nil, fmt.Errorf("scanning adaline state: %w", err)
		}
		a.Name = textOrEmpty(name)
		a.UpdateCount = int8Ptr(count)
		a.AvgError = float8Ptr(avgErr)
		a.LearningRate = float8Ptr(rate)
		a.UpdatedAt = timePtr(updated)
		states = append(states, a)
	}
	return states, rows.Err()
}

// FeedbackDistribution groups feedback events by type.
func (s *Store) FeedbackDistribution(ctx context.Context, schema string) (counts []FeedbackCount, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "feedback_distribution", schema)
	defer func() { finish(err) }()

	q := `
		SELECT feedback_type, COUNT(*) AS count
		FROM ` + rel(schema, TableFeedbackEvents) + `
		GROUP BY feedback_type
		ORDER BY feedback_type`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var c FeedbackCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning feedback count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TopConceptsByUtility ranks state atoms by learned utility.
func (s *Store) TopConceptsByUtility(ctx context.Context, schema string, limit int) (concepts []ConceptUtility, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "top_concepts", schema)
	defer func() { finish(err) }()

	q := `
		SELECT concept, adaline_utility, use_count,
		       positive_feedback_count, negative_feedback_count
		FROM ` + rel(schema, TableStateAtoms) + `
		WHERE adaline_utility IS NOT NULL
		ORDER BY adaline_utility DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                        ConceptUtility
			uses, positive, negative pgtype.Int8
		)
		if err := rows.Scan(&c.Concept, &c.Utility, &uses, &positive, &negative); err != nil {
			return nil, fmt.Errorf("scanning concept utility: %w", err)
		}
		c.UseCount = int8OrZero(uses)
		c.Positive = int8OrZero(positive)
		c.Negative = int8OrZero(negative)
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

// RecentInsights returns the latest responses with a short preview.
func (s *Store) RecentInsights(ctx context.Context, schema string, limit int) (insights []Insight, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "recent_insights", schema)
	defer func() { finish(err) }()

	q := `
		SELECT concept, LEFT(response, 100), is_successful, feedback_score, created_at
		FROM ` + rel(schema, TableProcessAtoms) + `
		WHERE response IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			i                Insight
			concept, preview pgtype.Text
			ok               pgtype.Bool
			score            pgtype.Float8
			created          pgtype.Timestamptz
		)
		if err := rows.Scan(&concept, &preview, &ok, &score, &created); err != nil {
			return nil, fmt.Errorf("scanning insight: %w", err)
		}
		i.Concept = textOrEmpty(concept)
		i.Preview = textOrEmpty(preview)
		i.Successful = ok.Status == pgtype.Present && ok.Bool
		i.Score = float8Ptr(score)
		i.CreatedAt = timePtr(created)
		insights = append(insights, i)
	}
	return insights, rows.Err()
}

// RecentProcessAtoms returns the latest solution attempts with a query
// preview for the overview table.
func (s *Store) RecentProcessAtoms(ctx context.Context, schema string, limit int) (atoms []ProcessAtom, err error) {
	if err = s.checkSchema(schema); err != nil {
		return nil, err
	}
	ctx, finish := s.instrument(ctx, "recent_process_atoms", schema)
	defer func() { finish(err) }()

	q := `
		SELECT concept, LEFT(query, 80), is_successful, created_at
		FROM ` + rel(schema, TableProcessAtoms) + `
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a                ProcessAtom
			concept, preview pgtype.Text
			ok               pgtype.Bool
			created          pgtype.Timestamptz
		)
		if err := rows.Scan(&concept, &preview, &ok, &created); err != nil {
			return nil, fmt.Errorf("scanning process atom: %w", err)
		}
		a.Concept = textOrEmpty(concept)
		a.QueryPreview = textOrEmpty(preview)
		a.Successful = ok.Status == pgtype.Present && ok.Bool
		a.CreatedAt = timePtr(created)
		atoms = append(atoms, a)
	}
	return atoms, rows.Err()
}

// MemoryState bundles the queries behind the memory state view.
func (s *Store) MemoryState(ctx context.Context, schema string) (*MemoryState, error) {
	adaline, err := s.AdalineStates(ctx, schema, 5)
	if err != nil {
		return nil, err
	}
	feedback, err := s.FeedbackDistribution(ctx, schema)
	if err != nil {
		return nil, err
	}
	top, err := s.TopConceptsByUtility(ctx, schema, 15)
	if err != nil {
		return nil, err
	}
	insights, err := s.RecentInsights(ctx, schema, 15)
	if err != nil {
		return nil, err
	}
	return &MemoryState{
		Adaline:     adaline,
		Feedback:    feedback,
		TopConcepts: top,
		Insights:    insights,
	}, nil
}

// TableCounts inspects every known table of a schema for the admin view.
// Missing tables are reported, not treated as errors.
func (s *Store) TableCounts(ctx context.Context, schema string) ([]TableCount, error) {
	if err := s.checkSchema(schema); err != nil {
		return nil, err
	}

	counts := make([]TableCount, 0, len(SchemaTables))
	for _, table := range SchemaTables {
		exists, err := s.TableExists(ctx, schema, table)
		if err != nil {
			return nil, err
		}
		tc := TableCount{Table: table, Exists: exists}
		if exists {
			if tc.Rows, err = s.CountRows(ctx, schema, table); err != nil {
				return nil, err
			}
		}
		counts = append(counts, tc)
	}
	return counts, nil
}

func knownTable(table string) bool {
	for _, t := range SchemaTables {
		if t == table {
			return true
		}
	}
	return false
}

func float8Ptr(v pgtype.Float8) *float64 {
	if v.Status != pgtype.Present {
		return nil
	}
	f := v.Float
	return &f
}

func int8Ptr(v pgtype.Int8) *int64 {
	if v.Status != pgtype.Present {
		return nil
	}
	n := v.Int
	return &n
}

func int8OrZero(v pgtype.Int8) int64 {
	if v.Status != pgtype.Present {
		return 0
	}
	return v.Int
}

func textOrEmpty(v pgtype.Text) string {
	if v.Status != pgtype.Present {
		return ""
	}
	return v.String
}

func timePtr(v pgtype.Timestamptz) *time.Time {
	if v.Status != pgtype.Present {
		return nil
	}
	t := v.Time
	return &t
}
