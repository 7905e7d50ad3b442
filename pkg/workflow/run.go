package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Status represents a workflow run status.
type Status string

// Workflow run statuses
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid statuses for validation
var validStatuses = map[Status]bool{
	StatusQueued:    true,
	StatusRunning:   true,
	StatusSuccess:   true,
	StatusFailed:    true,
	StatusCancelled: true,
}

// IsValid checks if a status is valid.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if the status is terminal (no further transitions).
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// Run represents a single execution of a workflow definition against a
// document. The JSON field names match the source system's persisted
// records, so exported runs stay comparable across implementations.
type Run struct {
	// RunID is a short unique identifier (8 hex chars)
	RunID string `json:"run_id"`

	// WorkflowName is the executed definition's name
	WorkflowName string `json:"workflow_name"`

	// DocumentID names the document this run operates on
	DocumentID string `json:"document_id"`

	// Status is the current lifecycle status
	Status Status `json:"status"`

	// CurrentStep is the id of the step being (or last) executed
	CurrentStep string `json:"current_step,omitempty"`

	// Parameters are the validated caller inputs, immutable after start
	Parameters map[string]interface{} `json:"parameters"`

	// State accumulates step results under "steps.<step_id>" keys
	State map[string]interface{} `json:"state"`

	// Outputs maps step id to that step's raw result
	Outputs map[string]interface{} `json:"outputs"`

	// StartedAt is the UTC time execution began
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is set when the run reaches a terminal status
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error is the human-readable failure message for failed runs
	Error string `json:"error,omitempty"`
}

// NewRun creates a run record in the queued status with a fresh id.
func NewRun(workflowName, documentID string, parameters map[string]interface{}) *Run {
	if parameters == nil {
		parameters = make(map[string]interface{})
	}
	return &Run{
		RunID:        uuid.NewString()[:8],
		WorkflowName: workflowName,
		DocumentID:   documentID,
		Status:       StatusQueued,
		Parameters:   parameters,
		State:        make(map[string]interface{}),
		Outputs:      make(map[string]interface{}),
	}
}

// Start marks the run as running and stamps StartedAt.
func (r *Run) Start() {
	r.Status = StatusRunning
	r.StartedAt = time.Now().UTC()
}

// Complete marks the run as successful and stamps CompletedAt.
func (r *Run) Complete() {
	r.Status = StatusSuccess
	now := time.Now().UTC()
	r.CompletedAt = &now
}

// Fail marks the run as failed with the given message and stamps CompletedAt.
func (r *Run) Fail(message string) {
	r.Status = StatusFailed
	r.Error = message
	now := time.Now().UTC()
	r.CompletedAt = &now
}

// RecordStep stores a step result in both the outputs map and the run
// state. The state key is the literal "steps.<step_id>" string; templates
// reading {{.steps.<id>.<field>}} do not see it, which matches the source
// system's observable behavior.
func (r *Run) RecordStep(stepID string, result map[string]interface{}) {
	if r.Outputs == nil {
		r.Outputs = make(map[string]interface{})
	}
	if r.State == nil {
		r.State = make(map[string]interface{})
	}
	r.Outputs[stepID] = result
	r.State["steps."+stepID] = result
}

// Duration returns the wall-clock duration of a completed run, or the
// elapsed time so far for one still running.
func (r *Run) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}
