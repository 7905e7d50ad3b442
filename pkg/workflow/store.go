package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/tombee/docflow/pkg/errors"
)

// RunStore defines the interface for run persistence.
// Save is an upsert: the full record overwrites any previous version.
type RunStore interface {
	// Save persists the run, overwriting an existing record with the same id.
	Save(ctx context.Context, run *Run) error

	// Get retrieves a run by id.
	Get(ctx context.Context, runID string) (*Run, error)

	// List returns runs matching the query, sorted by started_at descending.
	List(ctx context.Context, query *Query) ([]*Run, error)
}

// Query defines query parameters for listing runs.
type Query struct {
	Workflow string // Filter by workflow name
	Status   Status // Filter by status
	Limit    int    // Maximum number of results (0 = no limit)
	Offset   int    // Number of results to skip
}

// MemoryStore is an in-memory implementation of RunStore.
// It is thread-safe and suitable for testing or single-process deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryStore creates a new in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*Run),
	}
}

// Save persists the run, overwriting an existing record with the same id.
func (s *MemoryStore) Save(ctx context.Context, run *Run) error {
	if run == nil {
		return &errors.ValidationError{
			Field:   "run",
			Message: "run cannot be nil",
		}
	}
	if run.RunID == "" {
		return &errors.ValidationError{
			Field:   "run_id",
			Message: "run ID cannot be empty",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external modifications
	s.runs[run.RunID] = copyRun(run)

	return nil
}

// Get retrieves a run by id.
func (s *MemoryStore) Get(ctx context.Context, runID string) (*Run, error) {
	if runID == "" {
		return nil, &errors.ValidationError{
			Field:   "run_id",
			Message: "run ID cannot be empty",
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, &errors.NotFoundError{
			Resource: "run",
			ID:       runID,
		}
	}

	// Return a copy to prevent external modifications
	return copyRun(run), nil
}

// List returns all runs matching the query, sorted by started_at descending.
func (s *MemoryStore) List(ctx context.Context, query *Query) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Run
	for _, run := range s.runs {
		if matchesQuery(run, query) {
			results = append(results, copyRun(run))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	// Apply offset and limit
	if query != nil {
		if query.Offset > 0 {
			if query.Offset >= len(results) {
				return []*Run{}, nil
			}
			results = results[query.Offset:]
		}
		if query.Limit > 0 && len(results) > query.Limit {
			results = results[:query.Limit]
		}
	}

	return results, nil
}

// matchesQuery checks if a run matches the query criteria.
func matchesQuery(run *Run, query *Query) bool {
	if query == nil {
		return true
	}
	if query.Workflow != "" && run.WorkflowName != query.Workflow {
		return false
	}
	if query.Status != "" && run.Status != query.Status {
		return false
	}
	return true
}

// copyRun creates a deep copy of a run.
func copyRun(r *Run) *Run {
	if r == nil {
		return nil
	}

	out := &Run{
		RunID:        r.RunID,
		WorkflowName: r.WorkflowName,
		DocumentID:   r.DocumentID,
		Status:       r.Status,
		CurrentStep:  r.CurrentStep,
		StartedAt:    r.StartedAt,
		Error:        r.Error,
	}

	if r.CompletedAt != nil {
		completedAt := *r.CompletedAt
		out.CompletedAt = &completedAt
	}

	out.Parameters = copyMap(r.Parameters)
	out.State = copyMap(r.State)
	out.Outputs = copyMap(r.Outputs)

	return out
}

// copyMap deep-copies a nested string-keyed map.
func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue deep-copies maps and slices, passing scalars through.
func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
