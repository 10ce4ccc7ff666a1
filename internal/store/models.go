package store

import "time"

// Overview holds the headline row counts for one experiment schema.
type Overview struct {
	StateAtoms     int64 `json:"state_atoms"`
	ProcessAtoms   int64 `json:"process_atoms"`
	HebbianEdges   int64 `json:"hebbian_edges"`
	FeedbackEvents int64 `json:"feedback_events"`
}

// GraphStats summarizes the association network tables before rendering.
type GraphStats struct {
	Concepts  int64    `json:"concepts"`
	Edges     int64    `json:"edges"`
	AvgWeight *float64 `json:"avg_weight,omitempty"`
}

// ExperimentRun is one row of experiment_runs.
type ExperimentRun struct {
	RunName      string     `json:"run_name"`
	Model        string     `json:"model,omitempty"`
	Mode         string     `json:"mode"`
	TasksTotal   int64      `json:"tasks_total"`
	TasksCorrect int64      `json:"tasks_correct"`
	Accuracy     *float64   `json:"accuracy,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// LearningPoint is one step of the cumulative accuracy curve.
type LearningPoint struct {
	TaskNum    int64   `json:"task_num"`
	MemorySize int64   `json:"memory_size"`
	Accuracy   float64 `json:"accuracy"`
}

// TimelineBucket is one day of task attempts.
type TimelineBucket struct {
	Date    time.Time `json:"date"`
	Total   int64     `json:"total"`
	Correct int64     `json:"correct"`
}

// AdalineState is one snapshot of the utility learner.
type AdalineState struct {
	Name         string     `json:"name"`
	UpdateCount  *int64     `json:"update_count,omitempty"`
	AvgError     *float64   `json:"avg_error,omitempty"`
	LearningRate *float64   `json:"learning_rate,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// FeedbackCount is the number of feedback events of one type.
type FeedbackCount struct {
	Type  string `json:"feedback_type"`
	Count int64  `json:"count"`
}

// ConceptUtility is a state atom ranked by its learned utility.
type ConceptUtility struct {
	Concept  string  `json:"concept"`
	Utility  float64 `json:"adaline_utility"`
	UseCount int64   `json:"use_count"`
	Positive int64   `json:"positive_feedback_count"`
	Negative int64   `json:"negative_feedback_count"`
}

// Insight is a recent process atom with a response preview.
type Insight struct {
	Concept    string     `json:"concept"`
	Preview    string     `json:"insight_preview"`
	Successful bool       `json:"is_successful"`
	Score      *float64   `json:"feedback_score,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// ProcessAtom is a recent solution attempt with a query preview.
type ProcessAtom struct {
	Concept      string     `json:"concept"`
	QueryPreview string     `json:"query_preview"`
	Successful   bool       `json:"is_successful"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// TableCount reports presence and size of one table for the admin view.
type TableCount struct {
	Table  string `json:"table"`
	Exists bool   `json:"exists"`
	Rows   int64  `json:"rows"`
}

// MemoryState bundles everything the memory state view needs.
type MemoryState struct {
	Adaline     []AdalineState   `json:"adaline"`
	Feedback    []FeedbackCount  `json:"feedback"`
	TopConcepts []ConceptUtility `json:"top_concepts"`
	Insights    []Insight        `json:"insights"`
}
