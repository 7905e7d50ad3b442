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

package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/internal/templates"
	"github.com/tombee/docflow/pkg/workflow"
)

func TestNewInitCommand(t *testing.T) {
	cmd := NewInitCommand()

	if cmd == nil {
		t.Fatal("NewInitCommand() returned nil")
	}

	if cmd.Use != "init [name]" {
		t.Errorf("expected Use='init [name]', got %q", cmd.Use)
	}

	requiredFlags := []string{"template", "description", "dir", "force", "list"}
	for _, flagName := range requiredFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("--%s flag not defined", flagName)
		}
	}
}

func TestValidateWorkflowName(t *testing.T) {
	tests := []struct {
		name         string
		workflowName string
		expectError  bool
	}{
		{"valid simple name", "review", false},
		{"valid with underscore", "contract_review", false},
		{"valid with hyphen", "contract-review", false},
		{"valid with numbers", "review2", false},
		{"empty string", "", true},
		{"uppercase", "Review", true},
		{"dot", ".", true},
		{"path traversal up", "../evil", true},
		{"absolute path", "/absolute", true},
		{"with slash", "has/slash", true},
		{"with space", "has space", true},
		{"starts with number", "2review", true},
		{"starts with hyphen", "-review", true},
		{"starts with underscore", "_review", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWorkflowName(tt.workflowName)
			if tt.expectError && err == nil {
				t.Errorf("validateWorkflowName(%q) expected error, got nil", tt.workflowName)
			}
			if !tt.expectError && err != nil {
				t.Errorf("validateWorkflowName(%q) unexpected error: %v", tt.workflowName, err)
			}
		})
	}
}

func TestRunInitWritesScaffold(t *testing.T) {
	tmpDir := t.TempDir()

	err := runInit(initOptions{
		Name:        "invoice_checks",
		Template:    "blank",
		Description: "Checks invoices",
		Dir:         tmpDir,
	})
	if err != nil {
		t.Fatalf("runInit() failed: %v", err)
	}

	targetFile := filepath.Join(tmpDir, "invoice_checks.yaml")
	content, err := os.ReadFile(targetFile)
	if err != nil {
		t.Fatalf("Failed to read scaffold: %v", err)
	}

	def, err := workflow.ParseDefinition(content)
	if err != nil {
		t.Errorf("Generated workflow is invalid: %v\nContent:\n%s", err, content)
	}
	if def.Name != "invoice_checks" {
		t.Errorf("Expected workflow name 'invoice_checks', got %q", def.Name)
	}
	if def.Description != "Checks invoices" {
		t.Errorf("Expected description 'Checks invoices', got %q", def.Description)
	}
}

func TestRunInitAllTemplates(t *testing.T) {
	available, err := templates.List()
	if err != nil {
		t.Fatalf("templates.List() failed: %v", err)
	}

	for _, tmpl := range available {
		t.Run(tmpl.Name, func(t *testing.T) {
			tmpDir := t.TempDir()

			err := runInit(initOptions{
				Name:     "scaffold_check",
				Template: tmpl.Name,
				Dir:      tmpDir,
			})
			if err != nil {
				t.Fatalf("runInit() with template %q failed: %v", tmpl.Name, err)
			}

			content, err := os.ReadFile(filepath.Join(tmpDir, "scaffold_check.yaml"))
			if err != nil {
				t.Fatalf("Failed to read scaffold: %v", err)
			}

			if _, err := workflow.ParseDefinition(content); err != nil {
				t.Errorf("Template %q generated invalid workflow: %v", tmpl.Name, err)
			}
		})
	}
}

func TestRunInitExistingFile(t *testing.T) {
	tmpDir := t.TempDir()
	targetFile := filepath.Join(tmpDir, "existing.yaml")
	if err := os.WriteFile(targetFile, []byte("existing content"), 0644); err != nil {
		t.Fatalf("Failed to seed existing file: %v", err)
	}

	opts := initOptions{
		Name:     "existing",
		Template: "blank",
		Dir:      tmpDir,
	}

	err := runInit(opts)
	if err == nil {
		t.Error("Expected error when file exists without --force")
	} else if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}

	opts.Force = true
	if err := runInit(opts); err != nil {
		t.Errorf("runInit() with force failed: %v", err)
	}

	content, _ := os.ReadFile(targetFile)
	if strings.Contains(string(content), "existing content") {
		t.Error("File was not overwritten with force set")
	}
}

func TestRunInitInvalidTemplate(t *testing.T) {
	err := runInit(initOptions{
		Name:     "test",
		Template: "nonexistent",
		Dir:      t.TempDir(),
	})
	if err == nil {
		t.Error("Expected error for nonexistent template")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' error, got: %v", err)
	}
}

func TestRunInitInvalidName(t *testing.T) {
	tmpDir := t.TempDir()

	invalidNames := []string{"../evil", "/absolute", "has/slash", "..", "has space"}
	for _, name := range invalidNames {
		err := runInit(initOptions{Name: name, Template: "blank", Dir: tmpDir})
		if err == nil {
			t.Errorf("Expected error for invalid name %q", name)
		}
	}
}

func TestRunInitNonInteractive(t *testing.T) {
	t.Setenv("DOCFLOW_NON_INTERACTIVE", "true")

	// Missing template forces the form, which has no terminal here.
	err := runInit(initOptions{Name: "review", Dir: t.TempDir()})
	if err == nil {
		t.Fatal("Expected error in non-interactive mode")
	}

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Expected *shared.ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != shared.ExitNonInteractive {
		t.Errorf("Expected exit code %d, got %d", shared.ExitNonInteractive, exitErr.Code)
	}
}
