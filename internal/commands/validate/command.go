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

// Package validate implements the validate command: staged checks of
// workflow definition files against YAML syntax, the embedded JSON
// Schema and the structural rules the engine enforces.
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/internal/output"
	docflowerrors "github.com/tombee/docflow/pkg/errors"
	"github.com/tombee/docflow/pkg/workflow"
	workflowschema "github.com/tombee/docflow/pkg/workflow/schema"
)

// definitionPattern matches definition files under a directory,
// recursively. It mirrors the pattern the catalog loads with, so
// validate checks exactly the files 'docflow run' would see.
const definitionPattern = "**/*.{yaml,yml}"

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate workflow definition files",
		Annotations: map[string]string{
			"group": "workflow",
		},
		Long: `Validate checks workflow definition files in three stages: YAML syntax,
the embedded JSON Schema, and the structural rules the engine enforces
(unique step ids, well-formed parameter declarations).

The path may be a single definition file or a directory; directories
are checked recursively, the same way the catalog discovers them.

With --watch the command keeps running and revalidates whenever a
definition file under the path changes. Watch mode is interactive and
cannot be combined with --json.

See also: docflow init, docflow run`,
		Example: `  # Validate a single definition
  docflow validate workflows/document_review.yaml

  # Validate every definition under a directory
  docflow validate workflows/

  # Machine-readable result
  docflow validate workflows/document_review.yaml --json

  # Keep validating as you edit
  docflow validate workflows/ --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on validation errors
		SilenceErrors: true, // Don't print error message (we handle it ourselves)
		RunE: func(cmd *cobra.Command, args []string) error {
			if watchMode {
				if shared.GetJSON() {
					return fmt.Errorf("--watch cannot be combined with --json")
				}
				return runWatch(cmd, args[0])
			}
			return runValidate(cmd, args[0])
		},
	}

	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Revalidate whenever the file or directory changes")

	return cmd
}

// runValidate validates a file or directory once and maps the outcome
// to an exit code.
func runValidate(cmd *cobra.Command, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if shared.GetJSON() {
			output.EmitJSONError(cmd.OutOrStdout(), "validate", []output.JSONError{{
				Code:       shared.ErrorCodeFileNotFound,
				Message:    fmt.Sprintf("failed to read %s: %v", path, err),
				File:       path,
				Suggestion: "Check that the path is correct and the file exists",
			}})
			return &shared.ExitError{Code: shared.ExitMissingInput, Message: ""}
		}
		return shared.NewMissingInputError(fmt.Sprintf("failed to read %s", path), err)
	}

	if info.IsDir() {
		return validateDirectory(cmd, path)
	}
	return validateSingle(cmd, path)
}

// validateSingle validates one definition file and reports the staged
// results.
func validateSingle(cmd *cobra.Command, path string) error {
	def, validationErrors := validateFile(path)

	if len(validationErrors) > 0 {
		if shared.GetJSON() {
			output.EmitJSONError(cmd.OutOrStdout(), "validate", validationErrors)
			return &shared.ExitError{Code: shared.ExitInvalidDefinition, Message: ""}
		}
		printErrors(cmd, validationErrors)
		return &shared.ExitError{Code: shared.ExitInvalidDefinition, Message: "validation failed"}
	}

	if shared.GetJSON() {
		type workflowMetadata struct {
			Name       string   `json:"name"`
			Steps      int      `json:"steps"`
			Parameters []string `json:"parameters"`
		}

		type validateResponse struct {
			output.JSONResponse
			Workflow workflowMetadata `json:"workflow"`
		}

		resp := validateResponse{
			JSONResponse: output.JSONResponse{
				Command: "validate",
				Success: true,
			},
			Workflow: workflowMetadata{
				Name:       def.Name,
				Steps:      len(def.Steps),
				Parameters: parameterNames(def),
			},
		}
		return output.EmitJSON(cmd.OutOrStdout(), resp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Validation Results:")
	fmt.Fprintln(out, "  [OK] Syntax valid")
	fmt.Fprintln(out, "  [OK] Schema valid")
	fmt.Fprintln(out, "  [OK] Structure valid")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Workflow: %s (%d steps)\n", def.Name, len(def.Steps))
	if len(def.Parameters) > 0 {
		fmt.Fprintf(out, "Parameters: %s\n", strings.Join(describeParameters(def), ", "))
	}

	return nil
}

// validateDirectory validates every definition file under dir and
// prints a per-file listing with a summary.
func validateDirectory(cmd *cobra.Command, dir string) error {
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, definitionPattern))
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(matches)

	type fileReport struct {
		Path   string             `json:"path"`
		Valid  bool               `json:"valid"`
		Errors []output.JSONError `json:"errors,omitempty"`
	}

	reports := make([]fileReport, 0, len(matches))
	invalid := 0
	for _, path := range matches {
		_, fileErrors := validateFile(path)
		if len(fileErrors) > 0 {
			invalid++
		}
		reports = append(reports, fileReport{
			Path:   path,
			Valid:  len(fileErrors) == 0,
			Errors: fileErrors,
		})
	}

	if shared.GetJSON() {
		type directoryResponse struct {
			output.JSONResponse
			Checked int          `json:"checked"`
			Valid   int          `json:"valid"`
			Invalid int          `json:"invalid"`
			Files   []fileReport `json:"files"`
		}

		resp := directoryResponse{
			JSONResponse: output.JSONResponse{
				Command: "validate",
				Success: invalid == 0,
			},
			Checked: len(reports),
			Valid:   len(reports) - invalid,
			Invalid: invalid,
			Files:   reports,
		}
		if err := output.EmitJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		if invalid > 0 {
			return &shared.ExitError{Code: shared.ExitInvalidDefinition, Message: ""}
		}
		return nil
	}

	out := cmd.OutOrStdout()
	if len(reports) == 0 {
		fmt.Fprintf(out, "No definition files found in %s\n", dir)
		return nil
	}

	okMark := shared.SymbolOK
	failMark := shared.SymbolError
	if shared.IsTTY(os.Stdout) {
		okMark = shared.StatusOK.Render(okMark)
		failMark = shared.StatusError.Render(failMark)
	}

	for _, report := range reports {
		if report.Valid {
			fmt.Fprintf(out, "%s %s\n", okMark, report.Path)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", failMark, report.Path)
		printErrors(cmd, report.Errors)
	}

	fmt.Fprintf(out, "\nChecked %d files: %d valid, %d invalid\n",
		len(reports), len(reports)-invalid, invalid)

	if invalid > 0 {
		// The summary line is the report; the exit code carries the verdict.
		return &shared.ExitError{Code: shared.ExitInvalidDefinition, Message: ""}
	}
	return nil
}

// validateFile runs the three validation stages against one file. The
// returned definition is non-nil only when every stage passed.
func validateFile(path string) (*workflow.Definition, []output.JSONError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []output.JSONError{{
			Code:       shared.ErrorCodeFileNotFound,
			Message:    fmt.Sprintf("failed to read workflow file: %v", err),
			File:       path,
			Suggestion: "Check that the file path is correct and the file exists",
		}}
	}

	// Stage 1: YAML syntax.
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []output.JSONError{{
			Code:       shared.ErrorCodeInvalidYAML,
			Message:    fmt.Sprintf("YAML syntax error: %v", err),
			File:       path,
			Line:       yamlErrorLine(err),
			Suggestion: "Check YAML syntax and indentation",
		}}
	}

	// Stage 2: embedded JSON Schema.
	result, err := workflowschema.ValidateDefinition(data)
	if err != nil {
		return nil, []output.JSONError{{
			Code:       shared.ErrorCodeSchemaViolation,
			Message:    fmt.Sprintf("schema validation failed: %v", err),
			File:       path,
			Suggestion: "This is an internal error; please report it",
		}}
	}
	if !result.Valid {
		schemaErrors := make([]output.JSONError, 0, len(result.Errors))
		for _, ve := range result.Errors {
			schemaErrors = append(schemaErrors, output.JSONError{
				Code:       shared.ErrorCodeSchemaViolation,
				Message:    ve.Error(),
				File:       path,
				Suggestion: "Review the workflow schema constraints",
			})
		}
		return nil, schemaErrors
	}

	// Stage 3: structural rules (unique step ids, parameter types).
	def, err := workflow.ParseDefinition(data)
	if err != nil {
		suggestion := "Review step ids and parameter declarations"
		var valErr *docflowerrors.ValidationError
		if errors.As(err, &valErr) && valErr.Suggestion != "" {
			suggestion = valErr.Suggestion
		}
		return nil, []output.JSONError{{
			Code:       shared.ErrorCodeInvalidStructure,
			Message:    err.Error(),
			File:       path,
			Suggestion: suggestion,
		}}
	}

	return def, nil
}

// runWatch validates once, then revalidates whenever a definition file
// under the path changes. It returns when the command context is
// cancelled.
func runWatch(cmd *cobra.Command, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return shared.NewMissingInputError(fmt.Sprintf("failed to read %s", path), err)
	}

	watchDir := path
	if !info.IsDir() {
		// Watch the parent so editors that replace the file on save
		// still produce events for it.
		watchDir = filepath.Dir(path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := addWatchTree(fsw, watchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", watchDir, err)
	}

	revalidate := func() {
		if err := runValidate(cmd, path); err != nil {
			// In watch mode a failing file is a state to display, not a
			// reason to exit. Surface messages the command did not
			// already print itself.
			var exitErr *shared.ExitError
			if errors.As(err, &exitErr) {
				if msg := exitErr.Error(); msg != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), "Error:", msg)
				}
				return
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err.Error())
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes (press Ctrl+C to stop)\n\n", path)
	revalidate()

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			// Newly created subdirectories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := fsw.Add(event.Name); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
					}
					continue
				}
			}
			if !isDefinitionPath(event.Name) {
				continue
			}
			if !info.IsDir() && filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "--- %s %s\n", time.Now().Format("15:04:05"), event.Name)
			revalidate()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
		}
	}
}

// addWatchTree registers dir and every subdirectory with the watcher;
// fsnotify does not recurse on its own.
func addWatchTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

// printErrors writes validation errors to stderr in file:line form.
func printErrors(cmd *cobra.Command, validationErrors []output.JSONError) {
	for _, ve := range validationErrors {
		if ve.Line > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d: error: %s\n", ve.File, ve.Line, ve.Message)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: error: %s\n", ve.File, ve.Message)
		}
		if ve.Suggestion != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  Suggestion: %s\n", ve.Suggestion)
		}
	}
}

// parameterNames returns the declared parameter names in definition order.
func parameterNames(def *workflow.Definition) []string {
	names := make([]string, 0, len(def.Parameters))
	for _, param := range def.Parameters {
		names = append(names, param.Name)
	}
	return names
}

// describeParameters renders parameter names with a required marker for
// human output.
func describeParameters(def *workflow.Definition) []string {
	described := make([]string, 0, len(def.Parameters))
	for _, param := range def.Parameters {
		if param.Required {
			described = append(described, param.Name+" (required)")
			continue
		}
		described = append(described, param.Name)
	}
	return described
}

// yamlErrorLine extracts a line number from a yaml.v3 error when the
// message carries one.
func yamlErrorLine(err error) int {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		var line int
		if _, scanErr := fmt.Sscanf(typeErr.Errors[0], "line %d:", &line); scanErr == nil {
			return line
		}
	}

	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		return line
	}
	return 0
}

// isDefinitionPath reports whether a path looks like a workflow
// definition file.
func isDefinitionPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
