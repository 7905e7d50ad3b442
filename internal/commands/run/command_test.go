// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package run

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/internal/config"
)

// useTestCatalog points the shared runtime at a temp definitions
// directory with an in-memory run store. The agent command is set to a
// binary that cannot exist so no step ever reaches a real agent.
func useTestCatalog(t *testing.T, files map[string]string) {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	cfg := config.Default()
	cfg.Definitions.Dir = dir
	cfg.Agent.Command = "docflow-test-agent-missing"
	shared.SetConfig(cfg)
	t.Cleanup(func() { shared.SetConfig(nil) })
}

const echoDefinition = `name: echo
description: Copies a parameter into the step output
parameters:
  - name: x
    type: string
    required: true
steps:
  - id: s1
    type: data_transform
    description: Copy x
    config:
      transformations:
        y: "{{ .x }}"
`

const brokenDefinition = `name: broken
description: Second step type is not registered
steps:
  - id: first
    type: data_transform
    config:
      transformations:
        marker: "ran"
  - id: second
    type: not_a_registered_type
    config: {}
`

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()

	if cmd.Use != "run <workflow>" {
		t.Errorf("expected use 'run <workflow>', got %q", cmd.Use)
	}
	for _, flag := range []string{"document", "param", "min-confidence"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("--%s flag not defined", flag)
		}
	}
}

func TestRunRequiresDocument(t *testing.T) {
	useTestCatalog(t, map[string]string{"echo.yaml": echoDefinition})

	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"echo", "--param", "x=hi"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error without --document")
	}

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *shared.ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != shared.ExitMissingInput {
		t.Errorf("expected exit code %d, got %d", shared.ExitMissingInput, exitErr.Code)
	}
}

func TestRunTransformWorkflow(t *testing.T) {
	useTestCatalog(t, map[string]string{"echo.yaml": echoDefinition})

	cmd := NewCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"echo", "--document", "doc1", "--param", "x=hi"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run failed: %v\nStderr: %s", err, errOut.String())
	}

	if !strings.Contains(out.String(), "succeeded") {
		t.Errorf("expected success summary, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "Workflow: echo") {
		t.Errorf("expected workflow name in summary, got: %s", out.String())
	}
	// An exact name match should not print a resolution notice.
	if strings.Contains(errOut.String(), "Resolved") {
		t.Errorf("unexpected resolution notice: %s", errOut.String())
	}
}

func TestRunJSON(t *testing.T) {
	useTestCatalog(t, map[string]string{"echo.yaml": echoDefinition})

	shared.SetJSONForTest(true)
	defer shared.SetJSONForTest(false)

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"echo", "--document", "doc1", "--param", "x=hi"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run --json failed: %v", err)
	}

	var response struct {
		Command string `json:"command"`
		Success bool   `json:"success"`
		Run     struct {
			RunID        string                 `json:"run_id"`
			WorkflowName string                 `json:"workflow_name"`
			DocumentID   string                 `json:"document_id"`
			Status       string                 `json:"status"`
			Outputs      map[string]interface{} `json:"outputs"`
		} `json:"run"`
	}
	if err := json.Unmarshal(out.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out.String())
	}

	if response.Command != "run" {
		t.Errorf("expected command 'run', got %q", response.Command)
	}
	if !response.Success {
		t.Error("expected success true")
	}
	if response.Run.Status != "success" {
		t.Errorf("expected status success, got %q", response.Run.Status)
	}
	if response.Run.DocumentID != "doc1" {
		t.Errorf("expected document doc1, got %q", response.Run.DocumentID)
	}

	s1, ok := response.Run.Outputs["s1"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected s1 output, got %v", response.Run.Outputs)
	}
	transformed, ok := s1["transformed"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected transformed map, got %v", s1)
	}
	if transformed["y"] != "hi" {
		t.Errorf("expected transformed.y == hi, got %v", transformed["y"])
	}
}

func TestRunFailedStepExitsOne(t *testing.T) {
	useTestCatalog(t, map[string]string{"broken.yaml": brokenDefinition})

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"broken", "--document", "doc1"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected exit error for failed run")
	}

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *shared.ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != shared.ExitExecutionFailed {
		t.Errorf("expected exit code %d, got %d", shared.ExitExecutionFailed, exitErr.Code)
	}
	// The printed run already reports the failure; the exit error
	// carries only the code.
	if exitErr.Message != "" {
		t.Errorf("expected empty exit message, got %q", exitErr.Message)
	}

	if !strings.Contains(out.String(), "failed") {
		t.Errorf("expected failed summary, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "Step second failed") {
		t.Errorf("expected failing step named in summary, got: %s", out.String())
	}
}

func TestRunMissingRequiredParameter(t *testing.T) {
	useTestCatalog(t, map[string]string{"echo.yaml": echoDefinition})

	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"echo", "--document", "doc1"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing required parameter")
	}

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *shared.ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != shared.ExitMissingInput {
		t.Errorf("expected exit code %d, got %d", shared.ExitMissingInput, exitErr.Code)
	}
}

func TestRunRejectsLowConfidenceMatch(t *testing.T) {
	useTestCatalog(t, map[string]string{"echo.yaml": echoDefinition})

	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"zzzz", "--document", "doc1", "--min-confidence", "0.9"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected rejection for unresolvable name")
	}

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *shared.ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != shared.ExitInvalidDefinition {
		t.Errorf("expected exit code %d, got %d", shared.ExitInvalidDefinition, exitErr.Code)
	}
}

func TestRunResolvedNameNotice(t *testing.T) {
	definition := strings.Replace(echoDefinition, "name: echo", "name: document_review", 1)
	useTestCatalog(t, map[string]string{"document_review.yaml": definition})

	cmd := NewCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"nda_review", "--document", "doc1", "--param", "x=hi"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run failed: %v\nStderr: %s", err, errOut.String())
	}

	if !strings.Contains(errOut.String(), `Resolved "nda_review" -> document_review`) {
		t.Errorf("expected resolution notice on stderr, got: %s", errOut.String())
	}
	if !strings.Contains(out.String(), "Workflow: document_review") {
		t.Errorf("expected resolved workflow in summary, got: %s", out.String())
	}
}
