package workflow

import (
	"testing"
	"time"
)

func TestNewRun(t *testing.T) {
	run := NewRun("document_review", "doc1", map[string]interface{}{"x": "y"})

	if len(run.RunID) != 8 {
		t.Errorf("RunID = %q, want 8 characters", run.RunID)
	}
	if run.Status != StatusQueued {
		t.Errorf("Status = %v, want queued", run.Status)
	}
	if run.WorkflowName != "document_review" || run.DocumentID != "doc1" {
		t.Errorf("run = %+v", run)
	}
	if run.State == nil || run.Outputs == nil {
		t.Error("State and Outputs must be initialized")
	}
	if run.Parameters["x"] != "y" {
		t.Errorf("Parameters = %v", run.Parameters)
	}

	other := NewRun("document_review", "doc1", nil)
	if other.Parameters == nil {
		t.Error("nil parameters must become an empty map")
	}
	if other.RunID == run.RunID {
		t.Error("run ids must be unique")
	}
}

func TestRunLifecycle(t *testing.T) {
	run := NewRun("w", "d", nil)

	run.Start()
	if run.Status != StatusRunning {
		t.Errorf("Status = %v, want running", run.Status)
	}
	if run.StartedAt.IsZero() {
		t.Error("StartedAt not stamped")
	}
	if run.StartedAt.Location() != time.UTC {
		t.Error("StartedAt must be UTC")
	}
	if run.CompletedAt != nil {
		t.Error("CompletedAt set before completion")
	}

	run.Complete()
	if run.Status != StatusSuccess {
		t.Errorf("Status = %v, want success", run.Status)
	}
	if run.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
}

func TestRunFail(t *testing.T) {
	run := NewRun("w", "d", nil)
	run.Start()
	run.Fail("Step s1 failed: boom")

	if run.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", run.Status)
	}
	if run.Error != "Step s1 failed: boom" {
		t.Errorf("Error = %q", run.Error)
	}
	if run.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
}

func TestRunRecordStep(t *testing.T) {
	run := NewRun("w", "d", nil)
	result := map[string]interface{}{"status": "success", "value": 1}

	run.RecordStep("fetch", result)

	if got, ok := run.Outputs["fetch"]; !ok || got == nil {
		t.Error("result missing from Outputs")
	}
	// State uses the literal dotted key, not a nested map.
	if _, ok := run.State["steps.fetch"]; !ok {
		t.Error(`result missing from State under "steps.fetch"`)
	}
	if _, nested := run.State["steps"]; nested {
		t.Error("State must not grow a nested steps map")
	}
}

func TestRunDuration(t *testing.T) {
	run := NewRun("w", "d", nil)
	if run.Duration() != 0 {
		t.Errorf("Duration before start = %v, want 0", run.Duration())
	}

	run.Start()
	run.StartedAt = run.StartedAt.Add(-2 * time.Second)
	if run.Duration() < 2*time.Second {
		t.Errorf("Duration = %v, want at least 2s", run.Duration())
	}

	completed := run.StartedAt.Add(5 * time.Second)
	run.CompletedAt = &completed
	if run.Duration() != 5*time.Second {
		t.Errorf("Duration = %v, want 5s", run.Duration())
	}
}

func TestStatus(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusRunning, StatusSuccess, StatusFailed, StatusCancelled} {
		if !s.IsValid() {
			t.Errorf("%v should be valid", s)
		}
	}
	if Status("bogus").IsValid() {
		t.Error("bogus should not be valid")
	}

	terminal := map[Status]bool{
		StatusQueued:    false,
		StatusRunning:   false,
		StatusSuccess:   true,
		StatusFailed:    true,
		StatusCancelled: true,
	}
	for s, want := range terminal {
		if s.IsTerminal() != want {
			t.Errorf("%v.IsTerminal() = %v, want %v", s, s.IsTerminal(), want)
		}
	}
}
