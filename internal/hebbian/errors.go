package hebbian

import (
	"errors"
	"fmt"
)

// ErrEmptyGraph signals that the input edge set produced no nodes. It is a
// condition, not a failure: callers render an explicit empty state.
var ErrEmptyGraph = errors.New("hebbian: graph has no nodes")

// LayoutError reports that neither the stress layout nor the spring
// fallback produced finite coordinates for every node. Callers degrade to
// a stats-only rendering; nothing retries internally.
type LayoutError struct {
	Stage string // "validate", "stress" or "spring"
	Err   error
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("hebbian: layout failed at %s: %v", e.Stage, e.Err)
}

func (e *LayoutError) Unwrap() error { return e.Err }
