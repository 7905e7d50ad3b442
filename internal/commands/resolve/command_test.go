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

package resolve

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
	"github.com/tombee/docflow/pkg/resolver"
)

// useTestCatalog points the shared runtime at a temp definitions
// directory. The agent command is set to a binary that cannot exist so
// the oracle stage stays off and the cascade is deterministic.
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

const reviewDefinition = `name: document_review
description: Reviews documents for risk
steps:
  - id: analyze
    type: claude_analyze
    config:
      prompt: "Review."
`

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()

	if cmd.Use != "resolve <name>" {
		t.Errorf("expected use 'resolve <name>', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("context") == nil {
		t.Error("--context flag not defined")
	}
}

func TestResolveDirectMatch(t *testing.T) {
	useTestCatalog(t, map[string]string{"document_review.yaml": reviewDefinition})

	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"document_review"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "document_review -> document_review") {
		t.Errorf("expected direct match line, got: %s", output)
	}
	if !strings.Contains(output, "1.00") {
		t.Errorf("expected confidence 1.00, got: %s", output)
	}
	if !strings.Contains(output, resolver.ReasonDirectMatch) {
		t.Errorf("expected reason %s, got: %s", resolver.ReasonDirectMatch, output)
	}
}

func TestResolveAlias(t *testing.T) {
	useTestCatalog(t, map[string]string{"document_review.yaml": reviewDefinition})

	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"contract_review"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "contract_review -> document_review") {
		t.Errorf("expected alias match line, got: %s", output)
	}
	if !strings.Contains(output, resolver.ReasonStaticAlias) {
		t.Errorf("expected reason %s, got: %s", resolver.ReasonStaticAlias, output)
	}
}

func TestResolveNoMatchStillSucceeds(t *testing.T) {
	// An unmatchable name is information for the caller, not a failure.
	useTestCatalog(t, nil)

	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"zzz"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "zzz -> zzz") {
		t.Errorf("expected requested name echoed back, got: %s", output)
	}
	if !strings.Contains(output, resolver.ReasonNoMatch) {
		t.Errorf("expected reason %s, got: %s", resolver.ReasonNoMatch, output)
	}
}

func TestResolveJSON(t *testing.T) {
	useTestCatalog(t, map[string]string{"document_review.yaml": reviewDefinition})

	shared.SetJSONForTest(true)
	defer shared.SetJSONForTest(false)

	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"nda_review", "--context", "document_type=nda"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("resolve --json failed: %v", err)
	}

	var response struct {
		Command   string               `json:"command"`
		Success   bool                 `json:"success"`
		Requested string               `json:"requested"`
		Match     resolver.MatchResult `json:"match"`
	}
	if err := json.Unmarshal(buf.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, buf.String())
	}

	if response.Command != "resolve" {
		t.Errorf("expected command 'resolve', got %q", response.Command)
	}
	if !response.Success {
		t.Error("expected success true")
	}
	if response.Requested != "nda_review" {
		t.Errorf("expected requested 'nda_review', got %q", response.Requested)
	}
	if response.Match.MatchedWorkflow != "document_review" {
		t.Errorf("expected match document_review, got %q", response.Match.MatchedWorkflow)
	}
}

func TestResolveInvalidContext(t *testing.T) {
	useTestCatalog(t, nil)

	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"anything", "--context", "missing-separator"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for malformed context pair")
	}

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *shared.ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != shared.ExitMissingInput {
		t.Errorf("expected exit code %d, got %d", shared.ExitMissingInput, exitErr.Code)
	}
}

func TestConfidenceSymbol(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{1.0, shared.SymbolOK},
		{0.7, shared.SymbolOK},
		{0.5, shared.SymbolWarn},
		{0.3, shared.SymbolWarn},
		{0.2, shared.SymbolError},
		{0.0, shared.SymbolError},
	}

	for _, tt := range tests {
		if got := confidenceSymbol(tt.confidence); got != tt.want {
			t.Errorf("confidenceSymbol(%.2f) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}
